package models

import (
	"time"

	"github.com/google/uuid"
)

// Site identifies a supported listings website.
type Site string

const (
	SiteStreetEasy       Site = "streeteasy"
	SiteApartmentsDotCom Site = "apartmentsdotcom"
)

// Apartment is the persisted listing entity. Rows are created once per unique
// link and are immutable afterwards, except for AISummary which an
// out-of-band enrichment pass may fill in later.
type Apartment struct {
	ID            uuid.UUID `json:"apartment_id" db:"apartment_id"`
	ScrapedAt     time.Time `json:"scraped_at" db:"scraped_at"`
	Name          string    `json:"name" db:"name"`
	Price         float64   `json:"price" db:"price"`
	Description   string    `json:"description" db:"description"`
	AvailableDate time.Time `json:"available_date" db:"available_date"`
	DaysOnMarket  int       `json:"days_on_market" db:"days_on_market"`
	Link          string    `json:"link" db:"link"` // canonical source URL, unique
	ImageKeys     []string  `json:"image_urls" db:"image_urls"`
	Amenities     *string   `json:"amenities" db:"amenities"`
	Policies      *string   `json:"policies" db:"policies"`
	HomeFeatures  *string   `json:"home_features" db:"home_features"`
	Similar       []string  `json:"similar_listings" db:"similar_listings"`
	AISummary     *string   `json:"ai_summary" db:"ai_summary"`
	Beds          *int      `json:"num_beds" db:"num_beds"`
	Baths         *float64  `json:"num_baths" db:"num_baths"`
	SqFt          *int      `json:"sqft" db:"sqft"`
	Neighborhood  *string   `json:"neighborhood" db:"neighborhood"`
}

// PricePoint is one historical price observation taken from a listing page.
type PricePoint struct {
	Price float64   `json:"price"`
	Date  time.Time `json:"date"`
}

// ScrapedListing is the normalized output of a detail extraction, before
// persistence. ImageURLs are still raw third-party URLs at this point; the
// persistence gateway replaces them with blob store keys.
type ScrapedListing struct {
	Name          string
	Price         float64
	Description   string
	AvailableDate time.Time
	DaysOnMarket  int
	Link          string
	ImageURLs     []string
	Amenities     *string
	Policies      *string
	HomeFeatures  *string
	Similar       []string
	Beds          *int
	Baths         *float64
	SqFt          *int
	Neighborhood  *string
	PriceHistory  []PricePoint
}

// ScrapeRun records one pipeline execution for a site.
type ScrapeRun struct {
	ID            int64      `json:"id" db:"id"`
	Site          string     `json:"site" db:"site"`
	StartedAt     time.Time  `json:"started_at" db:"started_at"`
	FinishedAt    *time.Time `json:"finished_at" db:"finished_at"`
	Status        string     `json:"status" db:"status"`
	ListingsFound int        `json:"listings_found" db:"listings_found"`
	ListingsNew   int        `json:"listings_new" db:"listings_new"`
	ErrorsCount   int        `json:"errors_count" db:"errors_count"`
}

const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
)
