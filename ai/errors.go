package ai

import "errors"

// ErrTransient marks a failure that may succeed on retry: timeouts, refused
// or reset connections, rate limiting and server errors. Provider
// implementations classify their own transport errors; test doubles wrap
// this sentinel to simulate the same.
var ErrTransient = errors.New("transient backend error")
