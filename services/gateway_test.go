package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentscout/models"
	"rentscout/storage"
)

type fakeStore struct {
	mu      sync.Mutex
	rows    map[string]*models.Apartment
	history map[string][]models.PricePoint

	existsErr error
	saveErr   map[string]error // per-link forced failures
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		rows:    make(map[string]*models.Apartment),
		history: make(map[string][]models.PricePoint),
		saveErr: make(map[string]error),
	}
}

func (f *fakeStore) ApartmentExists(_ context.Context, link string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.existsErr != nil {
		return false, f.existsErr
	}
	_, ok := f.rows[link]
	return ok, nil
}

func (f *fakeStore) SaveApartment(_ context.Context, apt *models.Apartment, history []models.PricePoint) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.saveErr[apt.Link]; err != nil {
		return err
	}
	if _, ok := f.rows[apt.Link]; ok {
		return storage.ErrDuplicateLink
	}
	f.rows[apt.Link] = apt
	f.history[apt.Link] = history
	return nil
}

type fakeExternalizer struct {
	fail map[string]bool // URLs that fail to download
}

func (f *fakeExternalizer) ExternalizeAll(_ context.Context, urls []string) []string {
	var keys []string
	for _, u := range urls {
		if f.fail[u] {
			continue
		}
		keys = append(keys, "images/xx/"+u)
	}
	return keys
}

func listing(link string) *models.ScrapedListing {
	return &models.ScrapedListing{
		Name:          "Unit " + link,
		Price:         2500,
		Link:          link,
		AvailableDate: time.Now(),
	}
}

func TestSaveOneIsIdempotent(t *testing.T) {
	store := newFakeStore()
	g := NewGateway(store, &fakeExternalizer{})

	created, err := g.SaveOne(context.Background(), listing("https://x/1"))
	require.NoError(t, err)
	assert.True(t, created)

	created, err = g.SaveOne(context.Background(), listing("https://x/1"))
	require.NoError(t, err)
	assert.False(t, created, "second save of same link must be a skip")
	assert.Len(t, store.rows, 1)
}

func TestSaveBatchOverlappingRuns(t *testing.T) {
	// Run A saves 1..3; run B overlaps on 2..3 and adds 4. Only 4 is new.
	store := newFakeStore()
	g := NewGateway(store, &fakeExternalizer{})

	runA := []*models.ScrapedListing{listing("https://x/1"), listing("https://x/2"), listing("https://x/3")}
	saved, failed := g.SaveBatch(context.Background(), runA)
	assert.Equal(t, 3, saved)
	assert.Equal(t, 0, failed)

	runB := []*models.ScrapedListing{listing("https://x/2"), listing("https://x/3"), listing("https://x/4")}
	saved, failed = g.SaveBatch(context.Background(), runB)
	assert.Equal(t, 1, saved)
	assert.Equal(t, 0, failed)
	assert.Len(t, store.rows, 4)
}

func TestSaveOnePartialImageFailureStillSaves(t *testing.T) {
	store := newFakeStore()
	ext := &fakeExternalizer{fail: map[string]bool{"b.jpg": true}}
	g := NewGateway(store, ext)

	l := listing("https://x/1")
	l.ImageURLs = []string{"a.jpg", "b.jpg", "c.jpg"}

	created, err := g.SaveOne(context.Background(), l)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, []string{"images/xx/a.jpg", "images/xx/c.jpg"}, store.rows[l.Link].ImageKeys)
}

func TestSaveOneDuplicateRaceIsBenign(t *testing.T) {
	store := newFakeStore()
	g := NewGateway(store, &fakeExternalizer{})

	// The pre-check sees no row, but the insert hits the unique
	// constraint, as when a concurrent worker wins the race in between.
	l := listing("https://x/1")
	store.saveErr[l.Link] = storage.ErrDuplicateLink

	created, err := g.SaveOne(context.Background(), l)
	assert.NoError(t, err)
	assert.False(t, created)
}

func TestSaveBatchIsolatesFailures(t *testing.T) {
	store := newFakeStore()
	store.saveErr["https://x/3"] = fmt.Errorf("connection reset")
	g := NewGateway(store, &fakeExternalizer{})

	var batch []*models.ScrapedListing
	for i := 1; i <= 5; i++ {
		batch = append(batch, listing(fmt.Sprintf("https://x/%d", i)))
	}

	saved, failed := g.SaveBatch(context.Background(), batch)
	assert.Equal(t, 4, saved)
	assert.Equal(t, 1, failed)
	assert.NotContains(t, store.rows, "https://x/3")
}

func TestSaveOnePersistsPriceHistory(t *testing.T) {
	store := newFakeStore()
	g := NewGateway(store, &fakeExternalizer{})

	l := listing("https://x/1")
	l.PriceHistory = []models.PricePoint{
		{Price: 2600, Date: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)},
		{Price: 2500, Date: time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)},
	}

	created, err := g.SaveOne(context.Background(), l)
	require.NoError(t, err)
	require.True(t, created)
	assert.Len(t, store.history[l.Link], 2)
}
