package model

import "testing"

func TestNormalizeID(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"already canonical", "ORD-0001", "ORD-0001"},
		{"lowercase", "ord-0001", "ORD-0001"},
		{"mixed case", "Ord-0001", "ORD-0001"},
		{"surrounding whitespace", "  ORD-0001\t", "ORD-0001"},
		{"numeric id", "12345", "12345"},
		{"empty", "", ""},
		{"whitespace only", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeID(tt.in); got != tt.want {
				t.Errorf("NormalizeID(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
