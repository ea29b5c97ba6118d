package services

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"rentscout/models"
	"rentscout/storage"
)

// ApartmentStore is the slice of the database the gateway needs.
type ApartmentStore interface {
	ApartmentExists(ctx context.Context, link string) (bool, error)
	SaveApartment(ctx context.Context, apt *models.Apartment, history []models.PricePoint) error
}

// Externalizer rehomes raw image URLs into blob storage keys.
type Externalizer interface {
	ExternalizeAll(ctx context.Context, urls []string) []string
}

// Gateway turns scraped listings into persisted apartments. Listings whose
// link already exists are skipped before any image work happens; a race on
// the unique link constraint is absorbed the same way.
type Gateway struct {
	store  ApartmentStore
	images Externalizer
}

func NewGateway(store ApartmentStore, images Externalizer) *Gateway {
	return &Gateway{store: store, images: images}
}

// SaveBatch persists each listing independently: one bad listing never
// takes down its batch.
func (g *Gateway) SaveBatch(ctx context.Context, listings []*models.ScrapedListing) (saved, failed int) {
	for _, listing := range listings {
		created, err := g.SaveOne(ctx, listing)
		if err != nil {
			log.Warn().Err(err).Str("link", listing.Link).Msg("listing persistence failed")
			failed++
			continue
		}
		if created {
			saved++
		}
	}
	return saved, failed
}

// SaveOne persists a single listing. Returns false with no error when the
// listing was already known.
func (g *Gateway) SaveOne(ctx context.Context, listing *models.ScrapedListing) (bool, error) {
	exists, err := g.store.ApartmentExists(ctx, listing.Link)
	if err != nil {
		return false, err
	}
	if exists {
		log.Debug().Str("link", listing.Link).Msg("listing already known, skipping")
		return false, nil
	}

	imageKeys := g.images.ExternalizeAll(ctx, listing.ImageURLs)
	if len(listing.ImageURLs) > 0 && len(imageKeys) < len(listing.ImageURLs) {
		log.Warn().Str("link", listing.Link).
			Int("requested", len(listing.ImageURLs)).
			Int("stored", len(imageKeys)).
			Msg("some listing images could not be stored")
	}

	apt := &models.Apartment{
		ID:            uuid.New(),
		ScrapedAt:     time.Now(),
		Name:          listing.Name,
		Price:         listing.Price,
		Description:   listing.Description,
		AvailableDate: listing.AvailableDate,
		DaysOnMarket:  listing.DaysOnMarket,
		Link:          listing.Link,
		ImageKeys:     imageKeys,
		Amenities:     listing.Amenities,
		Policies:      listing.Policies,
		HomeFeatures:  listing.HomeFeatures,
		Similar:       listing.Similar,
		Beds:          listing.Beds,
		Baths:         listing.Baths,
		SqFt:          listing.SqFt,
		Neighborhood:  listing.Neighborhood,
	}

	if err := g.store.SaveApartment(ctx, apt, listing.PriceHistory); err != nil {
		if errors.Is(err, storage.ErrDuplicateLink) {
			// Lost a race with a concurrent worker; the row exists, so
			// this is a skip, not a failure.
			log.Debug().Str("link", listing.Link).Msg("concurrent insert won, skipping")
			return false, nil
		}
		return false, err
	}

	log.Info().Str("link", listing.Link).Str("name", apt.Name).Float64("price", apt.Price).
		Msg("listing saved")
	return true, nil
}
