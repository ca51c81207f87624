// Package database provides the PostgreSQL connection pool used by the
// relational upstream provider.
package database
