package vision

import "errors"

// ErrQuotaExceeded indicates the vision provider returned a quota/limit error (HTTP 429 or similar).
var ErrQuotaExceeded = errors.New("vision quota exceeded")

// ErrNoResult indicates the model response contained no parseable JSON object.
var ErrNoResult = errors.New("no json object in model response")
