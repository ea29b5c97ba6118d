package workers

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rentscout/models"
)

type fakeSummaryStore struct {
	pending   []*models.Apartment
	summaries map[string]string
	updateErr error
}

func (f *fakeSummaryStore) ListMissingSummaries(_ context.Context, limit int) ([]*models.Apartment, error) {
	if limit > len(f.pending) {
		limit = len(f.pending)
	}
	return f.pending[:limit], nil
}

func (f *fakeSummaryStore) UpdateAISummary(_ context.Context, apartmentID, summary string) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	if f.summaries == nil {
		f.summaries = make(map[string]string)
	}
	f.summaries[apartmentID] = summary
	return nil
}

type fakeBlob struct {
	blobs map[string][]byte
}

func (f *fakeBlob) Store(_ context.Context, data []byte, _ string) (string, error) {
	return "", fmt.Errorf("not used")
}

func (f *fakeBlob) Fetch(_ context.Context, key string) ([]byte, string, error) {
	data, ok := f.blobs[key]
	if !ok {
		return nil, "", fmt.Errorf("no blob %s", key)
	}
	return data, "image/jpeg", nil
}

type fakeDescriber struct {
	calls int
	err   error
}

func (f *fakeDescriber) Describe(_ context.Context, images [][]byte) (string, error) {
	f.calls++
	if f.err != nil {
		return "", f.err
	}
	return fmt.Sprintf("summary of %d images", len(images)), nil
}

func pendingApartment(keys ...string) *models.Apartment {
	return &models.Apartment{ID: uuid.New(), Link: "https://x/" + uuid.NewString(), ImageKeys: keys}
}

func TestProcessBatchSummarizes(t *testing.T) {
	apt := pendingApartment("k1", "k2")
	store := &fakeSummaryStore{pending: []*models.Apartment{apt}}
	blob := &fakeBlob{blobs: map[string][]byte{"k1": []byte("a"), "k2": []byte("b")}}
	desc := &fakeDescriber{}

	w := NewSummaryWorker(store, blob, desc)
	w.ProcessBatch(context.Background(), 10)

	require.Len(t, store.summaries, 1)
	assert.Equal(t, "summary of 2 images", store.summaries[apt.ID.String()])
}

func TestProcessBatchSkipsUnfetchableImages(t *testing.T) {
	apt := pendingApartment("k1", "gone")
	store := &fakeSummaryStore{pending: []*models.Apartment{apt}}
	blob := &fakeBlob{blobs: map[string][]byte{"k1": []byte("a")}}
	desc := &fakeDescriber{}

	w := NewSummaryWorker(store, blob, desc)
	w.ProcessBatch(context.Background(), 10)

	assert.Equal(t, "summary of 1 images", store.summaries[apt.ID.String()])
}

func TestProcessBatchDescriberFailureLeavesRowUntouched(t *testing.T) {
	apt := pendingApartment("k1")
	store := &fakeSummaryStore{pending: []*models.Apartment{apt}}
	blob := &fakeBlob{blobs: map[string][]byte{"k1": []byte("a")}}
	desc := &fakeDescriber{err: fmt.Errorf("model offline")}

	w := NewSummaryWorker(store, blob, desc)
	w.ProcessBatch(context.Background(), 10)

	assert.Empty(t, store.summaries)
	assert.Equal(t, 1, desc.calls)
}
