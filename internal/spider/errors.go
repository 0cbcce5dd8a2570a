package spider

import (
	"errors"
	"fmt"
)

var (
	errMissingHost    = errors.New("missing host")
	errEmptyMailbox   = errors.New("empty mailbox address")
	errNilDownloader  = errors.New("spider requires a downloader")
	errNilExtractor   = errors.New("spider requires an extractor")
	errNilScopeOracle = errors.New("spider requires a scope oracle")
)

// ParseError reports a single candidate URL that could not be turned into a resource.
type ParseError struct {
	URL string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse %q: %v", e.URL, e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}
