package repo

import "errors"

// errNoRow aborts a transaction whose precondition failed when the caller
// reports the outcome as a value rather than an error.
var errNoRow = errors.New("no matching row")
