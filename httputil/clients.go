package httputil

import (
	"crypto/tls"
	"net/http"
	"net/url"
	"time"

	"rentscout/config"
)

type Clients struct {
	Scraping *http.Client // proxied when a proxy is configured, for target-site downloads
	API      *http.Client // direct, for local/internal services
}

func NewClients(proxyCfg *config.ProxyConfig) *Clients {
	scraping := &http.Client{
		Timeout: 30 * time.Second,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 5 {
				return http.ErrUseLastResponse
			}
			return nil
		},
	}

	if proxyCfg != nil && proxyCfg.Server != "" {
		proxyURL, err := url.Parse(proxyCfg.Server)
		if err == nil {
			if proxyCfg.Username != "" {
				proxyURL.User = url.UserPassword(proxyCfg.Username, proxyCfg.Password)
			}
			scraping.Transport = &http.Transport{
				Proxy:             http.ProxyURL(proxyURL),
				ForceAttemptHTTP2: false,
				TLSNextProto:      make(map[string]func(string, *tls.Conn) http.RoundTripper),
			}
		}
	}

	return &Clients{
		Scraping: scraping,
		API:      &http.Client{Timeout: 120 * time.Second},
	}
}
