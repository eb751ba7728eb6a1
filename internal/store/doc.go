// Package store defines the persistence interfaces for cards and payment
// sagas, the errors every implementation reports, and a transaction helper
// for SQL-backed implementations.
package store
