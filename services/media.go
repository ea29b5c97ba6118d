package services

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/rs/zerolog/log"
)

// BlobStore is the slice of blob storage the media service needs.
type BlobStore interface {
	Store(ctx context.Context, data []byte, contentType string) (string, error)
	Fetch(ctx context.Context, key string) ([]byte, string, error)
}

const maxImageBytes = 50 << 20

// NoopExternalizer drops all images. Used when no blob bucket is configured.
type NoopExternalizer struct{}

func (NoopExternalizer) ExternalizeAll(context.Context, []string) []string { return nil }

// ImageService downloads listing images from their source site and rehomes
// them in the blob store.
type ImageService struct {
	client    *http.Client
	blob      BlobStore
	userAgent string
}

func NewImageService(client *http.Client, blob BlobStore, userAgent string) *ImageService {
	return &ImageService{client: client, blob: blob, userAgent: userAgent}
}

// ExternalizeAll downloads and stores every image concurrently. Failed
// images are logged and dropped; the returned keys preserve the input order
// of the images that succeeded.
func (s *ImageService) ExternalizeAll(ctx context.Context, urls []string) []string {
	if len(urls) == 0 {
		return nil
	}

	results := make([]string, len(urls))
	var wg sync.WaitGroup
	for i, u := range urls {
		wg.Add(1)
		go func(i int, u string) {
			defer wg.Done()
			key, err := s.externalize(ctx, u)
			if err != nil {
				log.Warn().Err(err).Str("url", u).Msg("image externalization failed")
				return
			}
			results[i] = key
		}(i, u)
	}
	wg.Wait()

	keys := make([]string, 0, len(urls))
	for _, key := range results {
		if key != "" {
			keys = append(keys, key)
		}
	}
	return keys
}

func (s *ImageService) externalize(ctx context.Context, imageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download: unexpected status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return "", fmt.Errorf("read body: %w", err)
	}
	if len(data) > maxImageBytes {
		return "", fmt.Errorf("image exceeds %d byte limit", maxImageBytes)
	}

	contentType := resp.Header.Get("Content-Type")
	if contentType == "" {
		contentType = http.DetectContentType(data)
	}

	key, err := s.blob.Store(ctx, data, contentType)
	if err != nil {
		return "", fmt.Errorf("store blob: %w", err)
	}
	return key, nil
}
