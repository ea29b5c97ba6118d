package scraper

import (
	"errors"
	"strings"
)

// ErrAccessDenied means the target site served a block page instead of
// results. Callers rotate identities and retry; it is never confused with
// "no results".
var ErrAccessDenied = errors.New("access denied by target site")

// ErrNavigationLimit is raised when the browsing backend refuses further
// navigations in the current session. It ends the current batch early but
// preserves partial progress.
var ErrNavigationLimit = errors.New("navigation limit reached")

// navigationLimited recognizes the remote backend's per-session navigation
// cap in error text from the automation layer.
func navigationLimited(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNavigationLimit) {
		return true
	}
	return strings.Contains(err.Error(), "Page.navigate limit reached")
}

// blockedTitle reports whether a page title reads like a denial page.
func blockedTitle(title string) bool {
	t := strings.ToLower(title)
	return strings.Contains(t, "denied") ||
		strings.Contains(t, "blocked") ||
		strings.Contains(t, "captcha")
}
