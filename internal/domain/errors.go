package domain

import "errors"

// ErrNotFound marks a point lookup or patch that referenced a missing
// record. Background evaluation treats absent records as "no match";
// user-initiated mutations surface it to the caller.
var ErrNotFound = errors.New("record not found")
