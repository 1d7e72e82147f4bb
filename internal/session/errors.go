package session

import "errors"

// ErrSessionNotFound is returned by Store.GetSession for an unregistered id.
var ErrSessionNotFound = errors.New("session not found")

// ErrInvalidAppend is returned by Session.Append when the existing value
// under the key is not a list.
var ErrInvalidAppend = errors.New("existing value is not a list")
