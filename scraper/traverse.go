package scraper

import (
	"time"

	"github.com/rs/zerolog/log"

	"rentscout/config"
)

// searchResults is the per-site view of a paginated search results flow.
// The playwright-backed implementations live next to each site scraper.
type searchResults interface {
	// Blocked inspects the current page for a denial/block page.
	Blocked() bool
	// WaitForListings waits up to timeout for the listing-card region.
	// false means the page rendered empty; that is not an error.
	WaitForListings(timeout time.Duration) bool
	// ListingLinks extracts the listing URLs on the current page.
	ListingLinks() []string
	// HasNextPage reports whether a usable pagination control exists.
	HasNextPage() bool
	// NextPage activates the "next" control and waits for the new page.
	NextPage() error
}

const listingsWaitTimeout = 20 * time.Second

// collectListingLinks drives a search results flow to the configured depth
// and returns the deduplicated union of discovered listing links. The
// traversal never loops forever: it stops at max depth, at a missing
// pagination control, at an empty page, or after pagination retries are
// exhausted (returning what it has). A detected block page returns
// ErrAccessDenied along with the links gathered so far.
func collectListingLinks(sr searchResults, cfg *config.SiteConfig) (map[string]struct{}, error) {
	links := make(map[string]struct{})

	for depth := 0; depth < cfg.MaxDepth; depth++ {
		if sr.Blocked() {
			return links, ErrAccessDenied
		}
		if !sr.WaitForListings(listingsWaitTimeout) {
			log.Debug().Int("depth", depth).Msg("listing region absent, treating page as empty")
			return links, nil
		}

		for _, link := range sr.ListingLinks() {
			links[link] = struct{}{}
		}

		if !sr.HasNextPage() {
			return links, nil
		}
		if err := nextPageWithRetries(sr, cfg); err != nil {
			log.Warn().Err(err).Int("depth", depth).Msg("pagination advance failed, ending traversal early")
			return links, nil
		}
	}

	return links, nil
}

func nextPageWithRetries(sr searchResults, cfg *config.SiteConfig) error {
	var lastErr error
	for attempt := 0; attempt < cfg.MaxRetries; attempt++ {
		if err := sr.NextPage(); err == nil {
			return nil
		} else {
			lastErr = err
		}
		if attempt < cfg.MaxRetries-1 {
			time.Sleep(backoffDelay(cfg.BaseDelay(), cfg.MaxDelay(), attempt))
		}
	}
	return lastErr
}
