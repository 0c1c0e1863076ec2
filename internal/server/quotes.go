package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// quoteFetcher produces the quote sequence for one game. Implementations
// must not fail: when every provider is down the static fallback set is
// returned instead.
type quoteFetcher interface {
	Fetch(ctx context.Context, count int, backend Backend) []Quote
}

type quoteProvider struct {
	Name   string
	URL    string
	APIKey string
}

// langflowFetcher talks to the two Langflow deployments. The failover order
// is backend-specific: the self-hosted flow prefers its own URL and falls
// back to the managed one, and vice versa.
type langflowFetcher struct {
	hosted  quoteProvider
	managed quoteProvider
	client  *http.Client
}

func newLangflowFetcher(hostedURL, managedURL, apiKey string) *langflowFetcher {
	return &langflowFetcher{
		hosted:  quoteProvider{Name: "langflow", URL: hostedURL},
		managed: quoteProvider{Name: "astra", URL: managedURL, APIKey: apiKey},
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

func (f *langflowFetcher) Fetch(ctx context.Context, count int, backend Backend) []Quote {
	providers := []quoteProvider{f.hosted, f.managed}
	if backend == BackendAstra {
		providers = []quoteProvider{f.managed, f.hosted}
	}
	for _, provider := range providers {
		if provider.URL == "" {
			continue
		}
		quotes, err := f.fetchFrom(ctx, provider, count)
		if err != nil {
			log.Printf("quote fetch failed provider=%s error=%v", provider.Name, err)
			metricQuoteFetchFailures.WithLabelValues(provider.Name).Inc()
			continue
		}
		return truncateQuotes(quotes, count)
	}
	log.Printf("quote fetch exhausted all providers, using fallback set")
	return truncateQuotes(append([]Quote(nil), fallbackQuotes...), count)
}

type langflowRequest struct {
	InputValue string         `json:"input_value"`
	OutputType string         `json:"output_type"`
	InputType  string         `json:"input_type"`
	Tweaks     map[string]any `json:"tweaks"`
}

type langflowResponse struct {
	Outputs []struct {
		Outputs []struct {
			Results struct {
				Text struct {
					Text string `json:"text"`
				} `json:"text"`
			} `json:"results"`
		} `json:"outputs"`
	} `json:"outputs"`
}

type quoteBatch struct {
	Quotes []Quote `json:"quotes"`
}

func (f *langflowFetcher) fetchFrom(ctx context.Context, provider quoteProvider, count int) ([]Quote, error) {
	payload, err := json.Marshal(langflowRequest{
		InputValue: strconv.Itoa(count),
		OutputType: "chat",
		InputType:  "chat",
		Tweaks:     map[string]any{},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to build quote request")
	}

	reqCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodPost, provider.URL, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build quote request")
	}
	req.Header.Set("Content-Type", "application/json")
	if provider.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(provider.APIKey))
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to reach quote provider: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read quote response")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("quote provider returned %d", resp.StatusCode)
	}
	return parseQuotePayload(body)
}

// parseQuotePayload unwraps the provider's doubly-encoded response: the
// outer envelope holds two batches ("real" and AI-generated quotes), each a
// JSON document nested inside a string field. The batches are merged and
// shuffled into one uniformly random sequence.
func parseQuotePayload(body []byte) ([]Quote, error) {
	var parsed langflowResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("failed to parse quote response: %w", err)
	}
	if len(parsed.Outputs) == 0 || len(parsed.Outputs[0].Outputs) < 2 {
		return nil, errors.New("quote response missing outputs")
	}

	var real, fake quoteBatch
	if err := json.Unmarshal([]byte(parsed.Outputs[0].Outputs[0].Results.Text.Text), &real); err != nil {
		return nil, fmt.Errorf("failed to parse real quote batch: %w", err)
	}
	if err := json.Unmarshal([]byte(parsed.Outputs[0].Outputs[1].Results.Text.Text), &fake); err != nil {
		return nil, fmt.Errorf("failed to parse generated quote batch: %w", err)
	}

	merged := append(append([]Quote(nil), real.Quotes...), fake.Quotes...)
	if len(merged) == 0 {
		return nil, errors.New("quote response contained no quotes")
	}
	rand.Shuffle(len(merged), func(i, j int) {
		merged[i], merged[j] = merged[j], merged[i]
	})
	return merged, nil
}

func truncateQuotes(quotes []Quote, count int) []Quote {
	if count > 0 && len(quotes) > count {
		return quotes[:count]
	}
	return quotes
}
