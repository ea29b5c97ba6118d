package scraper

import (
	"math/rand"
	"time"

	"github.com/playwright-community/playwright-go"
)

// Pacing delays are a politeness measure, not a correctness requirement.
// Tests shrink them to near zero via pacingScale.
var pacingScale = 1.0

func humanDelay(minMs, maxMs int) {
	d := time.Duration(float64(minMs+rand.Intn(maxMs-minMs+1))*pacingScale) * time.Millisecond
	time.Sleep(d)
}

var extraClickSelectors = []string{
	"header", "footer", "nav", ".site-logo", ".searchBar",
}

// randomExtraClick pokes a harmless element to look less mechanical. A
// missing or unclickable target is ignored.
func randomExtraClick(page playwright.Page) {
	sel := extraClickSelectors[rand.Intn(len(extraClickSelectors))]
	el := page.Locator(sel).First()
	if visible, _ := el.IsVisible(); !visible {
		return
	}
	_ = el.Click(playwright.LocatorClickOptions{
		Timeout: playwright.Float(500),
		Force:   playwright.Bool(true),
	})
	humanDelay(100, 400)
}
