// Package credstore defines the credential lookup contract consumed by the
// session engine at login.
//
// Adapters live in subpackages: memory for tests and single-process setups,
// postgres for the users table managed by the sessiongate migrate command.
// Adapters return password hashes as stored; verification happens in the
// engine.
package credstore
