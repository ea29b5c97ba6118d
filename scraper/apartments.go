package scraper

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog/log"

	"rentscout/config"
	"rentscout/models"
)

// apartmentsScraper drives the building-oriented secondary site: one page
// describes a building and lists its available units, so a single listing
// URL can yield several records.
type apartmentsScraper struct {
	cfg *config.SiteConfig
}

func newApartmentsScraper(cfg *config.SiteConfig) *apartmentsScraper {
	return &apartmentsScraper{cfg: cfg}
}

func (s *apartmentsScraper) Site() models.Site { return models.SiteApartmentsDotCom }

func (s *apartmentsScraper) Search(page playwright.Page) ([]string, error) {
	searchURL := s.cfg.URL
	if s.cfg.MinPrice > 0 || s.cfg.MaxPrice > 0 {
		searchURL = fmt.Sprintf("%s%d-to-%d/", strings.TrimSuffix(s.cfg.URL, "/")+"/", s.cfg.MinPrice, s.cfg.MaxPrice)
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

	links, err := collectListingLinks(&apartmentsResults{page: page, baseURL: searchURL}, s.cfg)
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

func (s *apartmentsScraper) ExtractListing(page playwright.Page, listingURL string) ([]*models.ScrapedListing, error) {
	if _, err := page.Goto(listingURL, playwright.PageGotoOptions{
		Timeout:   playwright.Float(60000),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		if navigationLimited(err) {
			return nil, fmt.Errorf("%w: %v", ErrNavigationLimit, err)
		}
		return nil, fmt.Errorf("navigate to listing: %w", err)
	}

	if !waitVisible(page, "#propertyHeader", listingAnchorTimeout) {
		log.Warn().Str("url", listingURL).Msg("property header absent, skipping")
		return nil, nil
	}

	name := textOrEmpty(page, "h1.propertyName", fieldTimeout)
	neighborhood := textContent(page, ".propertyAddressContainer .neighborhoodAddress", fieldTimeout)
	description := textOrEmpty(page, "#descriptionSection .descriptionText", fieldTimeout)
	images := s.galleryImages(page)

	units, err := page.Locator(".pricingGridItem.mortar-wrapper").All()
	if err != nil || len(units) == 0 {
		units, _ = page.Locator("#availability-section .rentalGridRow").All()
	}
	if len(units) == 0 {
		log.Warn().Str("url", listingURL).Msg("no available units found on building page")
		return nil, nil
	}

	now := time.Now()
	var listings []*models.ScrapedListing
	for _, unit := range units {
		listing, err := s.parseUnit(unit, listingURL, name, description, neighborhood, images, now)
		if err != nil {
			log.Warn().Err(err).Str("building", name).Msg("failed to parse unit")
			continue
		}
		if listing != nil {
			listings = append(listings, listing)
		}
	}
	return listings, nil
}

var unitNameRe = regexp.MustCompile(`[^a-zA-Z0-9]+`)

func (s *apartmentsScraper) parseUnit(unit playwright.Locator, listingURL, building, description string, neighborhood *string, images []string, now time.Time) (*models.ScrapedListing, error) {
	priceText := locatorText(unit, ".rent")
	if priceText == "" {
		return nil, nil // no rent shown means the unit is not rentable
	}

	unitName := locatorText(unit, ".unit")
	availText := locatorText(unit, ".available .date")
	if availText == "" {
		availText = "now"
	}

	listing := &models.ScrapedListing{
		Name:          strings.TrimSpace(building + " " + unitName),
		Price:         ParsePrice(priceText),
		Description:   description,
		AvailableDate: ParseAvailabilityDate(availText, now),
		// Each unit gets a fragment-qualified link so units of one
		// building dedup independently.
		Link:         unitLink(listingURL, unitName),
		ImageURLs:    images,
		Neighborhood: neighborhood,
		Beds:         parseBedrooms(locatorText(unit, ".beds .longText")),
		Baths:        parseBathrooms(locatorText(unit, ".baths .longText")),
		SqFt:         parseSquareFeet(locatorText(unit, ".sqft .longText") + " sq ft"),
	}
	return listing, nil
}

func unitLink(listingURL, unitName string) string {
	slug := strings.Trim(unitNameRe.ReplaceAllString(strings.ToLower(unitName), "-"), "-")
	if slug == "" {
		return listingURL
	}
	return listingURL + "#unit-" + slug
}

func (s *apartmentsScraper) galleryImages(page playwright.Page) []string {
	gallery := page.Locator("#media-gallery-container").First()
	if visible, _ := gallery.IsVisible(); !visible {
		return nil
	}
	imgs, err := gallery.Locator("img").All()
	if err != nil {
		return nil
	}

	seen := make(map[string]struct{})
	var urls []string
	for _, img := range imgs {
		src, err := img.GetAttribute("src")
		if err != nil || src == "" {
			continue
		}
		if _, dup := seen[src]; dup {
			continue
		}
		seen[src] = struct{}{}
		urls = append(urls, src)
	}
	return urls
}

func locatorText(l playwright.Locator, selector string) string {
	text, err := l.Locator(selector).First().TextContent(
		playwright.LocatorTextContentOptions{Timeout: playwright.Float(float64(subFieldTimeout.Milliseconds()))},
	)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(text)
}

// apartmentsResults adapts the building-search results grid to the
// traversal engine.
type apartmentsResults struct {
	page    playwright.Page
	baseURL string
}

func (r *apartmentsResults) Blocked() bool {
	title, _ := r.page.Title()
	return blockedTitle(title)
}

func (r *apartmentsResults) WaitForListings(timeout time.Duration) bool {
	return waitVisible(r.page, "article.placard", timeout)
}

func (r *apartmentsResults) ListingLinks() []string {
	var links []string
	anchors, err := r.page.Locator("article.placard a.property-link[href]").All()
	if err != nil {
		return links
	}
	for _, a := range anchors {
		href, err := a.GetAttribute("href")
		if err != nil || href == "" {
			continue
		}
		links = append(links, absoluteURL(r.baseURL, href))
	}
	return links
}

func (r *apartmentsResults) HasNextPage() bool {
	next := r.page.Locator("a.next").First()
	visible, _ := next.IsVisible()
	return visible
}

func (r *apartmentsResults) NextPage() error {
	humanDelay(200, 800)
	if err := r.page.Locator("a.next").First().Click(); err != nil {
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
