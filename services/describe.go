package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
)

// Describer produces a natural-language description of a set of images.
type Describer interface {
	Describe(ctx context.Context, images [][]byte) (string, error)
}

const describePrompt = "You are a real estate assistant. Describe this apartment " +
	"based on the photos: layout, light, condition and anything notable. " +
	"Be concise and factual, three sentences at most."

// OllamaDescriber asks a locally hosted multimodal model to summarize
// listing photos.
type OllamaDescriber struct {
	client  *http.Client
	baseURL string
	model   string
}

func NewOllamaDescriber(client *http.Client, baseURL, model string) *OllamaDescriber {
	return &OllamaDescriber{
		client:  client,
		baseURL: strings.TrimSuffix(baseURL, "/"),
		model:   model,
	}
}

type ollamaRequest struct {
	Model  string   `json:"model"`
	Prompt string   `json:"prompt"`
	Images []string `json:"images"`
	Stream bool     `json:"stream"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Error    string `json:"error,omitempty"`
}

func (d *OllamaDescriber) Describe(ctx context.Context, images [][]byte) (string, error) {
	if len(images) == 0 {
		return "", fmt.Errorf("no images to describe")
	}

	encoded := make([]string, len(images))
	for i, img := range images {
		encoded[i] = base64.StdEncoding.EncodeToString(img)
	}

	body, err := json.Marshal(ollamaRequest{
		Model:  d.model,
		Prompt: describePrompt,
		Images: encoded,
		Stream: false,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("call model: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("model returned status %d", resp.StatusCode)
	}

	var out ollamaResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("decode response: %w", err)
	}
	if out.Error != "" {
		return "", fmt.Errorf("model error: %s", out.Error)
	}

	summary := strings.TrimSpace(out.Response)
	if summary == "" {
		return "", fmt.Errorf("model returned an empty description")
	}
	return summary, nil
}
