package identity

import (
	"errors"
	"math/rand"
	"sync"
)

// Viewport is a browser window size in CSS pixels.
type Viewport struct {
	Width  int `yaml:"width"`
	Height int `yaml:"height"`
}

// Identity is one outbound browsing identity. It lives only for the duration
// of a single browsing session and is never persisted.
type Identity struct {
	UserAgent string
	Viewport  Viewport
	Timezone  string
	Locale    string
	HasTouch  bool
}

// Pool is the configured identity material the rotator draws from.
type Pool struct {
	UserAgents []string
	Viewports  []Viewport
	Timezones  []string
	Locale     string
}

var ErrEmptyPool = errors.New("identity: user agent pool is empty")

var (
	defaultViewports = []Viewport{{1920, 1080}, {1536, 864}, {1440, 900}, {1366, 768}}
	defaultTimezones = []string{"America/New_York", "America/Chicago", "America/Los_Angeles"}
)

// Rotator hands out identities to concurrent scraping workers. User agents
// cycle round-robin so the whole pool gets used; viewport, timezone and touch
// capability are drawn at random per call.
type Rotator struct {
	mu   sync.Mutex
	pool Pool
	next int
}

// NewRotator fails on an empty user agent pool; that is a configuration
// error, not something to retry at runtime.
func NewRotator(pool Pool) (*Rotator, error) {
	if len(pool.UserAgents) == 0 {
		return nil, ErrEmptyPool
	}
	if len(pool.Viewports) == 0 {
		pool.Viewports = defaultViewports
	}
	if len(pool.Timezones) == 0 {
		pool.Timezones = defaultTimezones
	}
	if pool.Locale == "" {
		pool.Locale = "en-US"
	}
	return &Rotator{pool: pool}, nil
}

// Next returns the next identity. Safe for concurrent callers.
func (r *Rotator) Next() Identity {
	r.mu.Lock()
	defer r.mu.Unlock()

	ua := r.pool.UserAgents[r.next%len(r.pool.UserAgents)]
	r.next++
	return r.compose(ua)
}

// Shuffled returns one identity per configured user agent, in random order.
// Used by the try-each-identity-until-one-works session policy.
func (r *Rotator) Shuffled() []Identity {
	r.mu.Lock()
	defer r.mu.Unlock()

	ids := make([]Identity, len(r.pool.UserAgents))
	for i, ua := range r.pool.UserAgents {
		ids[i] = r.compose(ua)
	}
	rand.Shuffle(len(ids), func(i, j int) { ids[i], ids[j] = ids[j], ids[i] })
	return ids
}

func (r *Rotator) compose(ua string) Identity {
	return Identity{
		UserAgent: ua,
		Viewport:  r.pool.Viewports[rand.Intn(len(r.pool.Viewports))],
		Timezone:  r.pool.Timezones[rand.Intn(len(r.pool.Timezones))],
		Locale:    r.pool.Locale,
		HasTouch:  rand.Intn(2) == 0,
	}
}
