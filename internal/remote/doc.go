// Package remote is the per-tenant backend the engine writes through to
// when a session is active.
//
// Every table is scoped by an owner id: reads only return the owner's rows
// and writes stamp or filter on it. Rows use the backend's snake_case column
// names; the mappers in rows.go translate to and from domain values.
//
// SQLService implements Service on database/sql with either SQLite or MySQL.
// The remotetest package provides an in-memory Service for tests.
package remote
