package scraper

import (
	"github.com/playwright-community/playwright-go"

	"rentscout/config"
	"rentscout/models"
)

// SiteScraper is the closed per-site dispatch: one implementation per
// supported site. Adding a site means adding a variant here and a case to
// NewSiteScraper.
type SiteScraper interface {
	Site() models.Site

	// Search drives the filter-and-paginate flow on a fresh page and
	// returns the discovered listing links. Returns ErrAccessDenied when
	// the site serves a block page.
	Search(page playwright.Page) ([]string, error)

	// ExtractListing navigates to one listing and extracts its records.
	// Building-oriented sites may yield several unit records per page.
	// A missing content anchor yields (nil, nil): logged and skipped,
	// retry policy belongs to the orchestrator.
	ExtractListing(page playwright.Page, url string) ([]*models.ScrapedListing, error)
}

func NewSiteScraper(cfg *config.SiteConfig) SiteScraper {
	switch models.Site(cfg.ID) {
	case models.SiteApartmentsDotCom:
		return newApartmentsScraper(cfg)
	default:
		return newStreetEasyScraper(cfg)
	}
}
