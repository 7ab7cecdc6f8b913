package embedding

import "errors"

// ErrLocalUnavailable is returned when the in-process extractor cannot be used.
var ErrLocalUnavailable = errors.New("local face embedding model not available")
