// Package database provides connection pool management for PostgreSQL.
//
// The pool backs the optional catalog store: the latest security catalog is
// persisted so a restart can serve reads before the first upstream refresh.
package database
