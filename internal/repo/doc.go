// Package repo is the statement layer: one typed repository per record type,
// with hand-written, parameterized SQL executed through the store.
//
// Every write runs inside store.RunTransaction and succeeds or fails
// atomically. Point lookups report absence as found=false, never as an
// error. Live queries (Observe*) wrap the same reads in a live.Subscription
// keyed on the record's table.
//
// Inserts use replace semantics: a row sharing the primary key is replaced
// in full. Preset Update aborts with a constraint error when no row matches.
package repo
