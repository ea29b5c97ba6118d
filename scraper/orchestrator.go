package scraper

import (
	"context"
	"errors"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"rentscout/config"
	"rentscout/identity"
	"rentscout/models"
)

// ListingSink persists extracted listings. Per-listing failures are handled
// inside the sink; the counts report how many listings were newly saved and
// how many failed.
type ListingSink interface {
	SaveBatch(ctx context.Context, listings []*models.ScrapedListing) (saved int, failed int)
}

// RunRecorder keeps per-execution accounting rows. A nil recorder disables
// accounting without changing pipeline behavior.
type RunRecorder interface {
	CreateScrapeRun(ctx context.Context, run *models.ScrapeRun) error
	UpdateScrapeRun(ctx context.Context, run *models.ScrapeRun) error
}

// Orchestrator runs the full pipeline for every enabled site. Each site gets
// N independent worker flows; each worker runs its own search pass under
// identity rotation, shuffles its link set and walks the listings one
// session at a time. Overlap between workers is harmless: the sink
// deduplicates by link.
type Orchestrator struct {
	cfg      *config.Config
	sessions *SessionManager
	rotator  *identity.Rotator
	sink     ListingSink
	runs     RunRecorder

	// extract visits one listing. Defaults to the session-backed
	// implementation; swapped for a scripted one in tests.
	extract func(sc SiteScraper, link string) ([]*models.ScrapedListing, error)
}

func NewOrchestrator(cfg *config.Config, sessions *SessionManager, rotator *identity.Rotator, sink ListingSink, runs RunRecorder) *Orchestrator {
	o := &Orchestrator{
		cfg:      cfg,
		sessions: sessions,
		rotator:  rotator,
		sink:     sink,
		runs:     runs,
	}
	o.extract = o.extractOne
	return o
}

// RunAll scrapes every enabled site concurrently and returns once all of
// them finish. A failing site never aborts the others.
func (o *Orchestrator) RunAll(ctx context.Context) {
	var wg sync.WaitGroup
	for _, siteCfg := range o.cfg.Sites {
		if !siteCfg.Enabled {
			log.Debug().Str("site", siteCfg.ID).Msg("site disabled, skipping")
			continue
		}
		wg.Add(1)
		go func(sc *config.SiteConfig) {
			defer wg.Done()
			o.RunSite(ctx, sc)
		}(siteCfg)
	}
	wg.Wait()
}

type runStats struct {
	mu     sync.Mutex
	found  int
	saved  int
	failed int
}

func (s *runStats) addFound(n int) {
	s.mu.Lock()
	s.found += n
	s.mu.Unlock()
}

func (s *runStats) add(saved, failed int) {
	s.mu.Lock()
	s.saved += saved
	s.failed += failed
	s.mu.Unlock()
}

// RunSite executes one full scrape of a single site.
func (o *Orchestrator) RunSite(ctx context.Context, siteCfg *config.SiteConfig) {
	run := &models.ScrapeRun{
		Site:      siteCfg.ID,
		StartedAt: time.Now(),
		Status:    models.RunStatusRunning,
	}
	if o.runs != nil {
		if err := o.runs.CreateScrapeRun(ctx, run); err != nil {
			log.Warn().Err(err).Str("site", siteCfg.ID).Msg("could not record scrape run")
		}
	}

	workers := siteCfg.Workers
	if workers < 1 {
		workers = 1
	}

	stats := &runStats{}
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(worker int) {
			defer wg.Done()
			o.runWorker(ctx, siteCfg, worker, stats)
		}(i)
	}
	wg.Wait()

	run.ListingsFound = stats.found
	run.ListingsNew = stats.saved
	run.ErrorsCount = stats.failed
	status := models.RunStatusCompleted
	if stats.found == 0 && stats.failed > 0 {
		status = models.RunStatusFailed
	}
	o.finishRun(ctx, run, status)

	log.Info().Str("site", siteCfg.ID).
		Int("found", run.ListingsFound).
		Int("new", run.ListingsNew).
		Int("errors", run.ErrorsCount).
		Msg("site scrape finished")
}

// runWorker is one independent flow: search under identity rotation, shuffle
// the links, then process them sequentially. Workers never share sessions.
func (o *Orchestrator) runWorker(ctx context.Context, siteCfg *config.SiteConfig, worker int, stats *runStats) {
	sc := NewSiteScraper(siteCfg)

	links, err := o.searchWithRotation(siteCfg, sc)
	if err != nil && len(links) == 0 {
		log.Error().Err(err).Str("site", siteCfg.ID).Int("worker", worker).Msg("search failed")
		stats.add(0, 1)
		return
	}
	if err != nil {
		log.Warn().Err(err).Str("site", siteCfg.ID).Int("worker", worker).Int("links", len(links)).
			Msg("search ended early, processing partial results")
	}
	stats.addFound(len(links))
	log.Info().Str("site", siteCfg.ID).Int("worker", worker).Int("links", len(links)).Msg("search complete")

	// Shuffling de-correlates crawl order across workers and across runs.
	rand.Shuffle(len(links), func(i, j int) { links[i], links[j] = links[j], links[i] })

	o.processListings(ctx, sc, siteCfg, worker, links, stats)
}

// searchWithRotation runs the search pass, burning through fresh identities
// when the site denies access. Detail pages are not needed during search, so
// images stay blocked.
func (o *Orchestrator) searchWithRotation(siteCfg *config.SiteConfig, sc SiteScraper) ([]string, error) {
	var links []string
	attempts, err := runWithIdentityRetry(siteCfg.MaxAttempts, siteCfg.BaseDelay(), siteCfg.MaxDelay(), func(attempt int) error {
		sess, err := o.sessions.OpenWithRotation(o.rotator.Shuffled(), SessionOptions{BlockImages: true})
		if err != nil {
			return err
		}
		defer sess.Close()

		found, err := sc.Search(sess.Page())
		if len(found) > 0 {
			links = found
		}
		return err
	})
	if err != nil {
		return links, err
	}
	if attempts > 1 {
		log.Info().Str("site", siteCfg.ID).Int("attempts", attempts).Msg("search recovered after identity rotation")
	}
	return links, nil
}

// processListings walks the link set one listing at a time, each in its own
// session: most browsing backends cap navigations per session, so sessions
// are never reused across listings. A navigation-limit condition ends the
// batch early with the processed counts intact.
func (o *Orchestrator) processListings(ctx context.Context, sc SiteScraper, siteCfg *config.SiteConfig, worker int, links []string, stats *runStats) {
	for _, link := range links {
		if ctx.Err() != nil {
			return
		}

		listings, err := o.extract(sc, link)
		if errors.Is(err, ErrNavigationLimit) {
			log.Warn().Str("site", siteCfg.ID).Int("worker", worker).
				Msg("navigation limit reached, ending batch early")
			return
		}
		if err != nil {
			log.Warn().Err(err).Str("url", link).Msg("listing extraction failed")
			stats.add(0, 1)
			continue
		}
		if len(listings) == 0 {
			continue
		}

		saved, failed := o.sink.SaveBatch(ctx, listings)
		stats.add(saved, failed)
		humanDelay(800, 2500)
	}
}

// extractOne opens a fresh session for a single listing and closes it before
// returning.
func (o *Orchestrator) extractOne(sc SiteScraper, link string) ([]*models.ScrapedListing, error) {
	sess, err := o.sessions.Open(o.rotator.Next(), SessionOptions{})
	if err != nil {
		return nil, err
	}
	defer sess.Close()
	return sc.ExtractListing(sess.Page(), link)
}

func (o *Orchestrator) finishRun(ctx context.Context, run *models.ScrapeRun, status string) {
	if o.runs == nil {
		return
	}
	now := time.Now()
	run.Status = status
	run.FinishedAt = &now
	if err := o.runs.UpdateScrapeRun(ctx, run); err != nil {
		log.Warn().Err(err).Str("site", run.Site).Msg("could not finalize scrape run record")
	}
}
