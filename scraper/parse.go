package scraper

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	numberRe   = regexp.MustCompile(`(\d+(?:\.\d+)?)`)
	digitRunRe = regexp.MustCompile(`(\d+)`)
	sqftRe     = regexp.MustCompile(`([\d,]+)\s*(?:ft²|ft2|sq\s?ft|square feet)`)
	multiSpaceRe = regexp.MustCompile(`\s+`)
	bedsRe     = regexp.MustCompile(`(\d+)\s*bed`)
	bathsRe    = regexp.MustCompile(`(\d+(?:\.\d+)?)\s*bath`)
)

// ParsePrice extracts the first numeric token from a messy price string.
// Ranges like "$1,000 - $1,200" yield the low bound. Unparseable input
// resolves to 0.0, logged, never an error.
func ParsePrice(text string) float64 {
	if text == "" {
		return 0
	}
	cleaned := strings.NewReplacer("$", "", ",", "").Replace(text)
	m := numberRe.FindString(cleaned)
	if m == "" {
		log.Warn().Str("text", text).Msg("no number found in price text")
		return 0
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		log.Warn().Str("token", m).Msg("could not convert price token")
		return 0
	}
	return v
}

var availabilityFormats = []string{
	"1/2/2006",
	"Jan 2, 2006",
	"January 2, 2006",
	"Jan 2",
	"January 2",
}

// ParseAvailabilityDate resolves listing availability text to a date.
// "now" in any form, empty input, and anything unparseable all resolve to
// now. Month-day formats assume the current year and roll forward one year
// when the result would already be in the past.
func ParseAvailabilityDate(text string, now time.Time) time.Time {
	cleaned := strings.TrimSpace(multiSpaceRe.ReplaceAllString(text, " "))
	lower := strings.ToLower(cleaned)
	if lower == "" || strings.Contains(lower, "now") {
		return now
	}
	lower = strings.TrimSpace(strings.ReplaceAll(lower, "available", ""))
	// time.Parse wants "Aug", not "aug" or "AUG".
	cleaned = titleWords(lower)

	for _, format := range availabilityFormats {
		parsed, err := time.Parse(format, cleaned)
		if err != nil {
			continue
		}
		if parsed.Year() == 0 {
			parsed = parsed.AddDate(now.Year(), 0, 0)
			if parsed.Before(now) {
				parsed = parsed.AddDate(1, 0, 0)
			}
		}
		return parsed
	}

	log.Warn().Str("text", text).Msg("could not parse availability date, using current date")
	return now
}

func titleWords(s string) string {
	words := strings.Fields(s)
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// ParseDaysOnMarket takes the first run of digits as the day count.
// Absent or unparseable text resolves to 0.
func ParseDaysOnMarket(text string) int {
	m := digitRunRe.FindString(text)
	if m == "" {
		return 0
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0
	}
	return n
}

// parseBedrooms maps "studio" to 0 and otherwise takes the first integer
// before "bed". nil when neither appears.
func parseBedrooms(text string) *int {
	lower := strings.ToLower(text)
	if strings.Contains(lower, "studio") {
		zero := 0
		return &zero
	}
	m := bedsRe.FindStringSubmatch(lower)
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		log.Warn().Str("text", text).Msg("could not parse bedroom count")
		return nil
	}
	return &n
}

func parseBathrooms(text string) *float64 {
	m := bathsRe.FindStringSubmatch(strings.ToLower(text))
	if m == nil {
		return nil
	}
	v, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		log.Warn().Str("text", text).Msg("could not parse bathroom count")
		return nil
	}
	return &v
}

func parseSquareFeet(text string) *int {
	m := sqftRe.FindStringSubmatch(strings.ToLower(text))
	if m == nil {
		return nil
	}
	n, err := strconv.Atoi(strings.ReplaceAll(m[1], ",", ""))
	if err != nil {
		log.Warn().Str("text", text).Msg("could not parse square footage")
		return nil
	}
	return &n
}
