// Package seed holds the built-in writing preset catalog.
//
// The catalog is embedded YAML checked against an embedded CUE schema when
// loaded. Install writes it into an empty presets table in one transaction,
// so a database is seeded at most once and never on top of user data.
package seed
