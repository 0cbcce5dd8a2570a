package types

import "errors"

// AcceptFunc decides, from response metadata alone, whether a body is worth
// downloading. contentLength is negative when the server did not send one.
type AcceptFunc func(rawURL, name string, contentLength int64, contentType string) bool

// ErrRejected is returned by a transport when the AcceptFunc declined the body.
var ErrRejected = errors.New("download rejected by acceptance check")
