package workers

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"rentscout/models"
	"rentscout/services"
)

// SummaryStore is the slice of the database the summary worker needs.
type SummaryStore interface {
	ListMissingSummaries(ctx context.Context, limit int) ([]*models.Apartment, error)
	UpdateAISummary(ctx context.Context, apartmentID string, summary string) error
}

// SummaryWorker periodically backfills AI descriptions for apartments that
// have stored images but no summary yet. It runs out of band; a failed
// apartment simply stays unsummarized until the next pass.
type SummaryWorker struct {
	store     SummaryStore
	blob      services.BlobStore
	describer services.Describer

	trigger chan struct{}
}

func NewSummaryWorker(store SummaryStore, blob services.BlobStore, describer services.Describer) *SummaryWorker {
	return &SummaryWorker{
		store:     store,
		blob:      blob,
		describer: describer,
		trigger:   make(chan struct{}, 1),
	}
}

// Trigger requests an immediate pass. Non-blocking; a pending trigger is
// collapsed into one.
func (w *SummaryWorker) Trigger() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

// Run processes batches on the given interval until the context ends.
func (w *SummaryWorker) Run(ctx context.Context, batchSize int, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		case <-w.trigger:
		}
		w.ProcessBatch(ctx, batchSize)
	}
}

// ProcessBatch summarizes up to batchSize pending apartments.
func (w *SummaryWorker) ProcessBatch(ctx context.Context, batchSize int) {
	apts, err := w.store.ListMissingSummaries(ctx, batchSize)
	if err != nil {
		log.Error().Err(err).Msg("could not list apartments pending summary")
		return
	}
	if len(apts) == 0 {
		return
	}

	log.Info().Int("count", len(apts)).Msg("summarizing apartments")
	for _, apt := range apts {
		if ctx.Err() != nil {
			return
		}
		if err := w.summarize(ctx, apt); err != nil {
			log.Warn().Err(err).Str("link", apt.Link).Msg("summary generation failed")
		}
	}
}

func (w *SummaryWorker) summarize(ctx context.Context, apt *models.Apartment) error {
	var images [][]byte
	for _, key := range apt.ImageKeys {
		data, _, err := w.blob.Fetch(ctx, key)
		if err != nil {
			log.Debug().Err(err).Str("key", key).Msg("image fetch failed, continuing without it")
			continue
		}
		images = append(images, data)
	}

	summary, err := w.describer.Describe(ctx, images)
	if err != nil {
		return err
	}
	return w.store.UpdateAISummary(ctx, apt.ID.String(), summary)
}
