package scraper

import (
	"fmt"
	"strings"
	"sync"

	"github.com/playwright-community/playwright-go"
	"github.com/rs/zerolog/log"

	"rentscout/config"
	"rentscout/identity"
)

var chromeArgs = []string{
	"--disable-blink-features=AutomationControlled",
	"--disable-dev-shm-usage",
	"--no-sandbox",
}

// SessionOptions tune one browsing session.
type SessionOptions struct {
	// BlockImages aborts image requests; search passes don't need them.
	BlockImages bool
}

// SessionManager acquires browser sessions: a local Chromium launch or an
// attach to a managed remote endpoint, per config.
type SessionManager struct {
	pw  *playwright.Playwright
	cfg *config.BrowserConfig
}

func NewSessionManager(cfg *config.BrowserConfig) (*SessionManager, error) {
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright: %w", err)
	}
	return &SessionManager{pw: pw, cfg: cfg}, nil
}

func (m *SessionManager) Stop() {
	if m.pw != nil {
		m.pw.Stop()
	}
}

// BrowsingSession owns exactly one browser connection, one context and one
// page. Nothing outside the session closes them directly.
type BrowsingSession struct {
	browser playwright.Browser
	context playwright.BrowserContext
	page    playwright.Page

	mu     sync.Mutex
	closed bool
}

func (s *BrowsingSession) Page() playwright.Page { return s.page }

// Close tears the session down on every exit path. Idempotent.
func (s *BrowsingSession) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true

	if s.page != nil {
		s.page.Close()
	}
	if s.context != nil {
		s.context.Close()
	}
	if s.browser != nil {
		s.browser.Close()
	}
}

// Open connects a browser, creates a context bound to the identity, installs
// the network policy and opens a page. If anything fails after the browser
// connection succeeds, whatever was partially created is closed before the
// error is returned.
func (m *SessionManager) Open(id identity.Identity, opts SessionOptions) (*BrowsingSession, error) {
	browser, err := m.connect()
	if err != nil {
		return nil, err
	}

	ctxOpts := playwright.BrowserNewContextOptions{
		UserAgent:  playwright.String(id.UserAgent),
		Viewport:   &playwright.Size{Width: id.Viewport.Width, Height: id.Viewport.Height},
		Locale:     playwright.String(id.Locale),
		TimezoneId: playwright.String(id.Timezone),
		HasTouch:   playwright.Bool(id.HasTouch),
		BypassCSP:  playwright.Bool(true),
	}

	context, err := browser.NewContext(ctxOpts)
	if err != nil {
		browser.Close()
		return nil, fmt.Errorf("create context: %w", err)
	}

	if err := context.Route("**/*", m.routeFilter(opts.BlockImages)); err != nil {
		context.Close()
		browser.Close()
		return nil, fmt.Errorf("install route filter: %w", err)
	}

	page, err := context.NewPage()
	if err != nil {
		context.Close()
		browser.Close()
		return nil, fmt.Errorf("create page: %w", err)
	}

	return &BrowsingSession{browser: browser, context: context, page: page}, nil
}

// OpenWithRotation tries each identity in the given order until one session
// opens. All-fail surfaces the last underlying error.
func (m *SessionManager) OpenWithRotation(ids []identity.Identity, opts SessionOptions) (*BrowsingSession, error) {
	var lastErr error
	for _, id := range ids {
		sess, err := m.Open(id, opts)
		if err == nil {
			log.Debug().Str("user_agent", id.UserAgent).Msg("session opened")
			return sess, nil
		}
		lastErr = err
		log.Warn().Err(err).Str("user_agent", id.UserAgent).Msg("session open failed, rotating identity")
	}
	return nil, fmt.Errorf("could not open a session with any identity: %w", lastErr)
}

func (m *SessionManager) connect() (playwright.Browser, error) {
	if m.cfg.Mode == "remote" {
		browser, err := m.pw.Chromium.ConnectOverCDP(m.cfg.RemoteEndpoint)
		if err != nil {
			return nil, fmt.Errorf("connect to remote browser %s: %w", m.cfg.RemoteEndpoint, err)
		}
		return browser, nil
	}

	launchOpts := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(m.cfg.Headless),
		Args:     chromeArgs,
	}
	if m.cfg.Proxy.Server != "" {
		if m.cfg.Proxy.Username == "" || m.cfg.Proxy.Password == "" {
			return nil, fmt.Errorf("proxy %q configured without credentials", m.cfg.Proxy.Server)
		}
		launchOpts.Proxy = &playwright.Proxy{
			Server:   m.cfg.Proxy.Server,
			Username: playwright.String(m.cfg.Proxy.Username),
			Password: playwright.String(m.cfg.Proxy.Password),
		}
	}

	browser, err := m.pw.Chromium.Launch(launchOpts)
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}
	return browser, nil
}

func (m *SessionManager) routeFilter(blockImages bool) func(playwright.Route) {
	return func(route playwright.Route) {
		req := route.Request()
		if blockImages && req.ResourceType() == "image" {
			route.Abort()
			return
		}
		url := req.URL()
		for _, pattern := range m.cfg.BlockedURLPatterns {
			if strings.Contains(url, pattern) {
				route.Abort()
				return
			}
		}
		route.Continue()
	}
}
