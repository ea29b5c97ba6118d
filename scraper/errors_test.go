package scraper

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNavigationLimited(t *testing.T) {
	assert.False(t, navigationLimited(nil))
	assert.False(t, navigationLimited(errors.New("net::ERR_TIMED_OUT")))
	assert.True(t, navigationLimited(errors.New("playwright: Page.navigate limit reached for this session")))
	assert.True(t, navigationLimited(fmt.Errorf("goto: %w", ErrNavigationLimit)))
}

func TestBlockedTitle(t *testing.T) {
	assert.True(t, blockedTitle("Access Denied"))
	assert.True(t, blockedTitle("Request Blocked"))
	assert.True(t, blockedTitle("Please solve this CAPTCHA"))
	assert.False(t, blockedTitle("Apartments for Rent in NYC"))
	assert.False(t, blockedTitle(""))
}

func TestUnitLink(t *testing.T) {
	assert.Equal(t,
		"https://x.com/building/#unit-apt-4b",
		unitLink("https://x.com/building/", "Apt 4B"))
	assert.Equal(t,
		"https://x.com/building/",
		unitLink("https://x.com/building/", "  "))
}
