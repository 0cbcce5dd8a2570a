package fetcher

import "net/http"

// RedirectPolicy returns a CheckRedirect function that stops after maxHops
// redirects with ErrTooManyRedirects. maxHops <= 0 keeps the net/http default of 10.
func RedirectPolicy(maxHops int) func(*http.Request, []*http.Request) error {
	if maxHops <= 0 {
		maxHops = 10
	}
	return func(_ *http.Request, via []*http.Request) error {
		if len(via) >= maxHops {
			return ErrTooManyRedirects
		}
		return nil
	}
}
