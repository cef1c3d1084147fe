package storage

import "errors"

// ErrWriteFailed signals a persistence write that did not land. The in-memory
// state stays authoritative; the flush worker retries later.
var ErrWriteFailed = errors.New("storage: write failed")
