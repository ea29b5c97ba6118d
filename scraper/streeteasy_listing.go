package scraper

import (
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog/log"

	"rentscout/models"
)

const (
	listingAnchorSelector = `[data-testid="homeAddress"]`
	listingAnchorTimeout  = 30 * time.Second
	fieldTimeout          = 5 * time.Second
	subFieldTimeout       = time.Second
)

func (s *streetEasyScraper) ExtractListing(page playwright.Page, listingURL string) ([]*models.ScrapedListing, error) {
	if _, err := page.Goto(listingURL, playwright.PageGotoOptions{
		Timeout:   playwright.Float(60000),
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}); err != nil {
		if navigationLimited(err) {
			return nil, fmt.Errorf("%w: %v", ErrNavigationLimit, err)
		}
		return nil, fmt.Errorf("navigate to listing: %w", err)
	}

	if !waitVisible(page, listingAnchorSelector, listingAnchorTimeout) {
		log.Warn().Str("url", listingURL).Msg("listing content anchor absent, skipping")
		return nil, nil
	}

	now := time.Now()
	listing := &models.ScrapedListing{
		Link:          listingURL,
		Name:          textOrEmpty(page, listingAnchorSelector, fieldTimeout),
		Price:         ParsePrice(textOrEmpty(page, `[data-testid="priceInfo"]`, fieldTimeout)),
		Description:   textOrEmpty(page, `[data-testid="about-section"]`, fieldTimeout),
		AvailableDate: ParseAvailabilityDate(textOrEmpty(page, `[data-testid="rentalListingSpec-available"]`, fieldTimeout), now),
		DaysOnMarket:  ParseDaysOnMarket(textOrEmpty(page, `[data-testid="rentalListingSpec-daysOnMarket"]`, fieldTimeout)),
		Amenities:     textContent(page, `[data-testid="amenities-section"]`, fieldTimeout),
		Policies:      textContent(page, `[data-testid="policies-section"]`, fieldTimeout),
		HomeFeatures:  textContent(page, `[data-testid="home-features-section"]`, fieldTimeout),
		Neighborhood:  textContent(page, `[data-testid="neighborhood-link"]`, fieldTimeout),
	}

	s.extractDetailsList(page, listing)
	listing.ImageURLs = collectCarouselImages(page)
	listing.PriceHistory = extractPriceHistory(page)
	listing.Similar = extractSimilarListings(page, listingURL)

	return []*models.ScrapedListing{listing}, nil
}

// extractDetailsList pulls square footage and bed/bath counts out of the
// details list. "Studio" maps to zero bedrooms; anything unparseable stays
// nil with a warning, never an error.
func (s *streetEasyScraper) extractDetailsList(page playwright.Page, listing *models.ScrapedListing) {
	items, err := page.Locator(`[data-testid="listingDetails"] li`).AllTextContents()
	if err != nil || len(items) == 0 {
		return
	}
	joined := strings.Join(items, " | ")

	listing.Beds = parseBedrooms(joined)
	listing.Baths = parseBathrooms(joined)
	listing.SqFt = parseSquareFeet(joined)
}

// collectCarouselImages walks the photo carousel by ascending index. The
// walk ends at the first missing index or the first repeated URL (carousels
// wrap around), producing an ordered, deduplicated list of raw image URLs.
func collectCarouselImages(page playwright.Page) []string {
	var urls []string
	seen := make(map[string]struct{})

	for i := 1; ; i++ {
		img := page.Locator(fmt.Sprintf(`img[alt="photo %d"]`, i)).First()
		count, err := img.Count()
		if err != nil || count == 0 {
			break
		}
		src, err := img.GetAttribute("src")
		if err != nil || src == "" {
			break
		}
		if _, dup := seen[src]; dup {
			break
		}
		seen[src] = struct{}{}
		urls = append(urls, src)
	}
	return urls
}

// extractPriceHistory reads the price-history table row by row. A row whose
// date or price doesn't parse is dropped individually; the table survives.
func extractPriceHistory(page playwright.Page) []models.PricePoint {
	rows, err := page.Locator(`[data-testid="priceHistory"] tbody tr`).All()
	if err != nil {
		return nil
	}

	var history []models.PricePoint
	for _, row := range rows {
		cells, err := row.Locator("td").AllTextContents()
		if err != nil || len(cells) < 2 {
			continue
		}
		dateText := strings.TrimSpace(cells[0])
		priceText := strings.TrimSpace(cells[1])

		parsed, ok := parseHistoryDate(dateText)
		if !ok {
			log.Debug().Str("date", dateText).Msg("dropping price history row with bad date")
			continue
		}
		price := ParsePrice(priceText)
		if price == 0 {
			log.Debug().Str("price", priceText).Msg("dropping price history row with bad price")
			continue
		}
		history = append(history, models.PricePoint{Price: price, Date: parsed})
	}
	return history
}

var historyDateFormats = []string{"1/2/2006", "Jan 2, 2006", "January 2, 2006", "2006-01-02"}

func parseHistoryDate(text string) (time.Time, bool) {
	for _, format := range historyDateFormats {
		if t, err := time.Parse(format, titleWords(strings.ToLower(text))); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// extractSimilarListings parses the similar-listings section HTML for
// anchors, resolving relative paths against the listing URL.
func extractSimilarListings(page playwright.Page, listingURL string) []string {
	section := page.Locator(`[data-testid="similar-listings"]`).First()
	count, err := section.Count()
	if err != nil || count == 0 {
		return nil
	}
	html, err := section.InnerHTML()
	if err != nil {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}

	seen := make(map[string]struct{})
	var links []string
	doc.Find("a[href]").Each(func(_ int, sel *goquery.Selection) {
		href, ok := sel.Attr("href")
		if !ok || href == "" {
			return
		}
		abs := absoluteURL(listingURL, href)
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}
		links = append(links, abs)
	})
	return links
}
