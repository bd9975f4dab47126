// Package accounts provides soundwave.AccountProvider implementations over
// the system of record: an in-memory table, PostgreSQL through pgx, and a
// SQLite file through the pure-Go modernc driver.
//
// Every store reports a missing account as soundwave.ErrUserNotFound and any
// other failure as a wrapped error, which the Engine treats as an
// infrastructure failure.
package accounts
