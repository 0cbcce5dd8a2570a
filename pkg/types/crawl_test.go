package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFetchTargetChild(t *testing.T) {
	seed := FetchTarget{URL: "http://example.com/"}
	assert.True(t, seed.IsSeed())

	child := seed.Child("http://example.com/a")
	assert.Equal(t, FetchTarget{URL: "http://example.com/a", Depth: 1, Referer: "http://example.com/"}, child)
	assert.False(t, child.IsSeed())
	assert.Equal(t, 2, child.Child("http://example.com/b").Depth)
}

func TestFetchedPageBaseURL(t *testing.T) {
	var nilPage *FetchedPage
	assert.Empty(t, nilPage.BaseURL())
	assert.Equal(t, "http://a/", (&FetchedPage{URL: "http://a/"}).BaseURL())
	assert.Equal(t, "http://b/", (&FetchedPage{URL: "http://a/", FinalURL: "http://b/"}).BaseURL())
}

func TestKindStrings(t *testing.T) {
	assert.Equal(t, "html", ContentHTML.String())
	assert.Equal(t, "other", ContentOther.String())
	assert.Equal(t, "mailbox", ResourceMailbox.String())
	assert.Equal(t, "skipped", ResourceSkipped.String())
}
