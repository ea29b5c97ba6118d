package scraper

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentscout/config"
)

// stubResults scripts a paginated results flow page by page.
type stubResults struct {
	pages     [][]string // links served per page
	page      int
	blocked   bool
	emptyWait bool
	nextErrs  int // NextPage failures before success
	nextCalls int
}

func (s *stubResults) Blocked() bool { return s.blocked }

func (s *stubResults) WaitForListings(time.Duration) bool { return !s.emptyWait }

func (s *stubResults) ListingLinks() []string {
	if s.page >= len(s.pages) {
		return nil
	}
	return s.pages[s.page]
}

func (s *stubResults) HasNextPage() bool { return s.page < len(s.pages)-1 }

func (s *stubResults) NextPage() error {
	s.nextCalls++
	if s.nextErrs > 0 {
		s.nextErrs--
		return errors.New("pagination timeout")
	}
	s.page++
	return nil
}

func testSiteConfig() *config.SiteConfig {
	return &config.SiteConfig{
		ID:          "streeteasy",
		MaxDepth:    5,
		MaxRetries:  3,
		BaseDelayMS: 1,
		MaxDelayMS:  2,
		MaxAttempts: 3,
	}
}

func TestCollectListingLinksWalksAllPages(t *testing.T) {
	sr := &stubResults{pages: [][]string{
		{"https://x/a", "https://x/b"},
		{"https://x/c"},
		{"https://x/d", "https://x/a"}, // duplicate across pages
	}}

	links, err := collectListingLinks(sr, testSiteConfig())
	require.NoError(t, err)
	assert.Len(t, links, 4)
	assert.Contains(t, links, "https://x/c")
}

func TestCollectListingLinksStopsAtMaxDepth(t *testing.T) {
	// More pages than the depth allows; the next control is always present.
	pages := make([][]string, 10)
	for i := range pages {
		pages[i] = []string{fmt.Sprintf("https://x/%d", i)}
	}
	cfg := testSiteConfig()
	cfg.MaxDepth = 3

	sr := &stubResults{pages: pages}
	links, err := collectListingLinks(sr, cfg)
	require.NoError(t, err)
	assert.Len(t, links, 3)
	assert.Equal(t, 3, sr.nextCalls)
}

func TestCollectListingLinksEmptyFirstPage(t *testing.T) {
	sr := &stubResults{pages: [][]string{{"https://x/a"}}, emptyWait: true}

	links, err := collectListingLinks(sr, testSiteConfig())
	require.NoError(t, err)
	assert.Empty(t, links)
}

func TestCollectListingLinksBlockedPage(t *testing.T) {
	sr := &stubResults{pages: [][]string{{"https://x/a"}}, blocked: true}

	links, err := collectListingLinks(sr, testSiteConfig())
	assert.ErrorIs(t, err, ErrAccessDenied)
	assert.Empty(t, links)
}

func TestCollectListingLinksPaginationRetriesThenRecovers(t *testing.T) {
	sr := &stubResults{
		pages:    [][]string{{"https://x/a"}, {"https://x/b"}},
		nextErrs: 2, // fails twice, succeeds on the third attempt
	}

	links, err := collectListingLinks(sr, testSiteConfig())
	require.NoError(t, err)
	assert.Len(t, links, 2)
	assert.Equal(t, 3, sr.nextCalls)
}

func TestCollectListingLinksPaginationExhaustedKeepsPartial(t *testing.T) {
	sr := &stubResults{
		pages:    [][]string{{"https://x/a"}, {"https://x/b"}},
		nextErrs: 99,
	}

	links, err := collectListingLinks(sr, testSiteConfig())
	require.NoError(t, err)
	assert.Len(t, links, 1)
	assert.Contains(t, links, "https://x/a")
	assert.Equal(t, 3, sr.nextCalls) // MaxRetries attempts, then give up
}
