// Package postgres is a credstore adapter backed by a PostgreSQL users table.
//
// The store runs on database/sql; open the handle with the pgx stdlib
// driver ("pgx"). The schema ships as embedded golang-migrate files, applied
// with [Migrate] or the `sessiongate migrate` command. Email lookups are
// case-insensitive and served by a unique index on lower(email).
//
// The failed_login_attempts and locked_until columns are carried by the
// schema but not read or written here.
package postgres
