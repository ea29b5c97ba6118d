package scraper

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog/log"

	"rentscout/config"
	"rentscout/models"
)

// streetEasyScraper drives the NY-focused listings site: per-unit listing
// pages with price history, a photo carousel and similar-listing links.
type streetEasyScraper struct {
	cfg *config.SiteConfig
}

func newStreetEasyScraper(cfg *config.SiteConfig) *streetEasyScraper {
	return &streetEasyScraper{cfg: cfg}
}

func (s *streetEasyScraper) Site() models.Site { return models.SiteStreetEasy }

func (s *streetEasyScraper) Search(page playwright.Page) ([]string, error) {
	searchURL := s.cfg.URL
	if s.cfg.StartPage > 1 {
		searchURL = fmt.Sprintf("%s?page=%d", searchURL, s.cfg.StartPage)
	}
	if _, err := page.Goto(searchURL, playwright.PageGotoOptions{
		Timeout:   playwright.Float(60000),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		return nil, fmt.Errorf("navigate to search: %w", err)
	}

	title, _ := page.Title()
	if blockedTitle(title) {
		return nil, fmt.Errorf("%w: search page title %q", ErrAccessDenied, title)
	}

	if err := s.applyFilters(page); err != nil {
		return nil, fmt.Errorf("apply search filters: %w", err)
	}

	links, err := collectListingLinks(&streetEasyResults{page: page, baseURL: s.cfg.URL}, s.cfg)
	out := make([]string, 0, len(links))
	for link := range links {
		out = append(out, link)
	}
	if err != nil {
		return out, err
	}
	log.Info().Str("site", s.cfg.ID).Int("links", len(out)).Msg("search traversal complete")
	return out, nil
}

// applyFilters fills the price range and unit-type filters the way a person
// would, with pacing and the occasional stray click.
func (s *streetEasyScraper) applyFilters(page playwright.Page) error {
	priceButton := page.GetByRole(*playwright.AriaRoleButton, playwright.PageGetByRoleOptions{Name: "Price"})
	if err := priceButton.Click(); err != nil {
		return fmt.Errorf("open price filter: %w", err)
	}
	humanDelay(300, 800)
	if rand.Float64() < 0.5 {
		randomExtraClick(page)
	}

	// No-fee filter lives under the price menu. Optional: some layouts
	// don't render it.
	noFee := page.GetByLabel("No Fee Only")
	if err := noFee.Click(playwright.LocatorClickOptions{Timeout: playwright.Float(3000)}); err == nil {
		humanDelay(200, 600)
	}

	minInput := page.GetByPlaceholder("No min")
	if err := minInput.Click(); err != nil {
		return fmt.Errorf("focus min price: %w", err)
	}
	humanDelay(100, 400)
	if err := minInput.Fill(fmt.Sprintf("%d", s.cfg.MinPrice)); err != nil {
		return fmt.Errorf("fill min price: %w", err)
	}
	humanDelay(200, 500)

	maxInput := page.GetByPlaceholder("Max")
	if err := maxInput.Click(); err != nil {
		return fmt.Errorf("focus max price: %w", err)
	}
	humanDelay(100, 400)
	if err := maxInput.Fill(fmt.Sprintf("%d", s.cfg.MaxPrice)); err != nil {
		return fmt.Errorf("fill max price: %w", err)
	}
	humanDelay(200, 500)

	// Dismiss dropdowns that can block the Done button.
	page.Keyboard().Press("Escape")
	humanDelay(100, 300)

	if s.cfg.AptType != "" {
		if err := page.GetByLabel("Beds / Baths").Click(); err != nil {
			return fmt.Errorf("open beds filter: %w", err)
		}
		humanDelay(200, 600)
		option := page.GetByTestId("desktop-filter").GetByText(s.cfg.AptType)
		if err := option.Click(); err != nil {
			return fmt.Errorf("select unit type %q: %w", s.cfg.AptType, err)
		}
		humanDelay(200, 600)
		page.Keyboard().Press("Escape")
		humanDelay(100, 300)
	}

	return nil
}

// streetEasyResults adapts one StreetEasy search results page to the
// traversal engine.
type streetEasyResults struct {
	page    playwright.Page
	baseURL string
}

const streetEasyCardSelector = "[class*='ListingCard']"

func (r *streetEasyResults) Blocked() bool {
	title, _ := r.page.Title()
	return blockedTitle(title)
}

func (r *streetEasyResults) WaitForListings(timeout time.Duration) bool {
	return waitVisible(r.page, streetEasyCardSelector, timeout)
}

func (r *streetEasyResults) ListingLinks() []string {
	var links []string

	cards, err := r.page.Locator(streetEasyCardSelector + " a[href]").All()
	if err != nil {
		return links
	}
	for _, card := range cards {
		href, err := card.GetAttribute("href")
		if err != nil || href == "" {
			continue
		}
		links = append(links, absoluteURL(r.baseURL, href))
	}
	return links
}

func (r *streetEasyResults) HasNextPage() bool {
	next := r.page.GetByLabel("Next Page").First()
	visible, _ := next.IsVisible()
	return visible
}

func (r *streetEasyResults) NextPage() error {
	if rand.Float64() < 0.4 {
		randomExtraClick(r.page)
	}
	humanDelay(200, 800)

	if err := r.page.GetByLabel("Next Page").First().Click(); err != nil {
		return fmt.Errorf("click next page: %w", err)
	}
	if err := r.page.WaitForLoadState(playwright.PageWaitForLoadStateOptions{
		State:   playwright.LoadStateDomcontentloaded,
		Timeout: playwright.Float(60000),
	}); err != nil {
		return fmt.Errorf("wait for next page load: %w", err)
	}
	humanDelay(400, 1200)
	return nil
}
