package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"stealthcompany.com/clinicportal/internal/metrics"
)

// HTTPService posts requests as JSON to the assistant endpoint
type HTTPService struct {
	httpClient *http.Client
	url        string
	log        zerolog.Logger
}

var _ Service = (*HTTPService)(nil)

// NewHTTPService creates a new assistant client
func NewHTTPService(url string, timeout time.Duration, logger zerolog.Logger) *HTTPService {
	return &HTTPService{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		url: url,
		log: logger.With().Str("component", "assistant").Logger(),
	}
}

// Converse sends one turn to the assistant
func (s *HTTPService) Converse(ctx context.Context, req Request) (Response, error) {
	startTime := time.Now()

	body, err := json.Marshal(req)
	if err != nil {
		return Response{}, fmt.Errorf("failed to encode assistant request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return Response{}, fmt.Errorf("failed to build assistant request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(httpReq)
	if err != nil {
		metrics.RecordUpstreamRequest("assistant", startTime, 0)
		return Response{}, fmt.Errorf("failed to call assistant: %w", err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			s.log.Error().Err(closeErr).Msg("Failed to close response body")
		}
	}()

	metrics.RecordUpstreamRequest("assistant", startTime, resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		return Response{}, fmt.Errorf("assistant returned status %d", resp.StatusCode)
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return Response{}, fmt.Errorf("failed to read assistant response: %w", err)
	}

	var out Response
	if err := json.Unmarshal(raw, &out); err != nil {
		return Response{}, fmt.Errorf("failed to parse assistant response: %w", err)
	}
	return out, nil
}
