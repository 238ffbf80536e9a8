package capture

import "errors"

// ErrSourceUnavailable means the source URL could not be resolved to a media
// stream (geo-blocked, removed, sign-in required). Fatal to the session; not
// retried automatically.
var ErrSourceUnavailable = errors.New("stream source unavailable")

// ErrCaptureLost means the decoding process died after capture had started
// and before a stop was requested.
var ErrCaptureLost = errors.New("stream capture lost")
