package storage

import "errors"

// ErrNotFound indicates that a requested record does not exist.
//
// Callers hitting this on update/delete paths should treat it as a hard
// error: the fact or session ID came from them.
var ErrNotFound = errors.New("record not found")
