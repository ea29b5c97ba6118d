package scraper

import (
	"net/url"
	"strings"
	"time"

	"github.com/playwright-community/playwright-go"
)

// textContent reads the text of the first match for selector, bounded by
// timeout. Absence or timeout yields nil, never an error: a missing field is
// a normal condition on listing pages.
func textContent(page playwright.Page, selector string, timeout time.Duration) *string {
	content, err := page.Locator(selector).First().TextContent(
		playwright.LocatorTextContentOptions{Timeout: playwright.Float(float64(timeout.Milliseconds()))},
	)
	if err != nil {
		return nil
	}
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func textOrEmpty(page playwright.Page, selector string, timeout time.Duration) string {
	if s := textContent(page, selector, timeout); s != nil {
		return *s
	}
	return ""
}

// absoluteURL resolves href against base; relative listing links are common
// on search result cards.
func absoluteURL(base, href string) string {
	b, err := url.Parse(base)
	if err != nil {
		return href
	}
	h, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return href
	}
	return b.ResolveReference(h).String()
}

// waitVisible waits up to timeout for selector; false means absent.
func waitVisible(page playwright.Page, selector string, timeout time.Duration) bool {
	err := page.Locator(selector).First().WaitFor(playwright.LocatorWaitForOptions{
		State:   playwright.WaitForSelectorStateVisible,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	return err == nil
}
