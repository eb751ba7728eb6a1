// Package postgres provides PostgreSQL implementations of the card and
// payment saga stores defined in internal/store, plus the embedded goose
// migrations that create their tables.
package postgres
