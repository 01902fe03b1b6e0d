// Package ingest copies resources from an upstream FHIR server into the store.
package ingest

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/rs/zerolog"

	"stealthcompany.com/clinicportal/internal/fhir"
	"stealthcompany.com/clinicportal/internal/metrics"
	"stealthcompany.com/clinicportal/internal/store"
)

// maxPages bounds how many "next" links one endpoint follows.
const maxPages = 50

// Writer is the store surface ingestion needs.
type Writer interface {
	Create(ctx context.Context, r fhir.Resource) (fhir.Resource, error)
	Update(ctx context.Context, resourceType, id string, payload map[string]any) (fhir.Resource, error)
}

// Bundle is the subset of a FHIR searchset bundle the client reads.
type Bundle struct {
	ResourceType string `json:"resourceType"`
	Type         string `json:"type"`
	Link         []struct {
		Relation string `json:"relation"`
		URL      string `json:"url"`
	} `json:"link"`
	Entry []struct {
		Resource json.RawMessage `json:"resource"`
	} `json:"entry"`
}

func (b *Bundle) next() string {
	for _, l := range b.Link {
		if l.Relation == "next" {
			return l.URL
		}
	}
	return ""
}

// Endpoint is one resource type to ingest.
type Endpoint struct {
	Name         string
	ResourceType string
}

// DefaultEndpoints are ingested in dependency order: referenced resources first.
var DefaultEndpoints = []Endpoint{
	{Name: "Practitioners", ResourceType: fhir.TypePractitioner},
	{Name: "Patients", ResourceType: fhir.TypePatient},
	{Name: "Appointments", ResourceType: fhir.TypeAppointment},
	{Name: "MedicationRequests", ResourceType: fhir.TypeMedicationRequest},
	{Name: "DiagnosticReports", ResourceType: fhir.TypeDiagnosticReport},
}

// Result counts what happened to one endpoint's entries.
type Result struct {
	Stored int `json:"stored"`
	Failed int `json:"failed"`
}

// Client fetches FHIR bundles and writes their entries into the store
type Client struct {
	httpClient *http.Client
	baseURL    string
	pageSize   int
	store      Writer
	locker     store.Locker
	log        zerolog.Logger
}

// NewClient creates a new ingestion client. locker may be nil when only one
// ingest process can run against the backend.
func NewClient(baseURL string, timeout time.Duration, pageSize int, w Writer, locker store.Locker, logger zerolog.Logger) *Client {
	return &Client{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		baseURL:  baseURL,
		pageSize: pageSize,
		store:    w,
		locker:   locker,
		log:      logger.With().Str("component", "ingest").Logger(),
	}
}

// IngestAllResources ingests every endpoint under the ingestion lock
func (c *Client) IngestAllResources(ctx context.Context, endpoints []Endpoint) (map[string]Result, error) {
	if c.locker != nil {
		if err := c.locker.Lock(ctx); err != nil {
			return nil, fmt.Errorf("acquire ingestion lock: %w", err)
		}
		defer func() {
			unlockCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
			defer cancel()
			if err := c.locker.Unlock(unlockCtx); err != nil {
				c.log.Error().Err(err).Msg("Failed to release ingestion lock")
			}
		}()
	}

	results := make(map[string]Result, len(endpoints))
	for _, endpoint := range endpoints {
		c.log.Info().Str("endpoint", endpoint.Name).Msg("Starting ingestion")

		result, err := c.ingestEndpoint(ctx, endpoint)
		results[endpoint.ResourceType] = result
		if err != nil {
			return results, fmt.Errorf("failed to ingest %s: %w", endpoint.Name, err)
		}
	}
	return results, nil
}

// ingestEndpoint walks every page of one resource type
func (c *Client) ingestEndpoint(ctx context.Context, endpoint Endpoint) (Result, error) {
	startTime := time.Now()
	var result Result

	pageURL := fmt.Sprintf("%s/%s?_count=%d", c.baseURL, endpoint.ResourceType, c.pageSize)
	for page := 1; pageURL != "" && page <= maxPages; page++ {
		bundle, err := c.fetchBundle(ctx, endpoint.ResourceType, pageURL)
		if err != nil {
			metrics.RecordIngestion(endpoint.ResourceType, startTime, "failed", result.Stored, result.Failed)
			return result, err
		}

		for _, entry := range bundle.Entry {
			if err := c.storeEntry(ctx, endpoint.ResourceType, entry.Resource); err != nil {
				if ctx.Err() != nil {
					return result, ctx.Err()
				}
				c.log.Error().Err(err).Str("endpoint", endpoint.Name).Msg("Failed to store resource")
				result.Failed++
				continue
			}
			result.Stored++
		}

		c.log.Info().
			Str("endpoint", endpoint.Name).
			Int("page", page).
			Int("stored", result.Stored).
			Int("failed", result.Failed).
			Msg("Progress update")

		pageURL = c.resolveNext(bundle.next())
	}

	metrics.RecordIngestion(endpoint.ResourceType, startTime, "success", result.Stored, result.Failed)
	c.log.Info().
		Str("endpoint", endpoint.Name).
		Int("stored", result.Stored).
		Int("failed", result.Failed).
		Msg("Completed ingestion")
	return result, nil
}

// storeEntry creates the resource under its upstream id, replacing it when a
// previous run already stored it.
func (c *Client) storeEntry(ctx context.Context, resourceType string, raw json.RawMessage) error {
	var r fhir.Resource
	if err := json.Unmarshal(raw, &r); err != nil {
		return err
	}
	if r.ResourceType != resourceType {
		return fmt.Errorf("bundle entry is %q, expected %s", r.ResourceType, resourceType)
	}

	_, err := c.store.Create(ctx, r)
	if errors.Is(err, store.ErrAlreadyExists) && r.ID != "" {
		_, err = c.store.Update(ctx, r.ResourceType, r.ID, r.Payload)
	}
	return err
}

// resolveNext makes a relative next link absolute against the base URL.
func (c *Client) resolveNext(next string) string {
	if next == "" {
		return ""
	}
	base, err := url.Parse(c.baseURL + "/")
	if err != nil {
		return next
	}
	ref, err := url.Parse(next)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

// fetchBundle fetches one page of a resource type
func (c *Client) fetchBundle(ctx context.Context, resourceType, pageURL string) (*Bundle, error) {
	startTime := time.Now()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request for %s: %w", resourceType, err)
	}
	req.Header.Set("Accept", "application/fhir+json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		metrics.RecordUpstreamRequest("fhir", startTime, 0)
		return nil, fmt.Errorf("failed to fetch %s: %w", resourceType, err)
	}
	defer func() {
		if closeErr := resp.Body.Close(); closeErr != nil {
			c.log.Error().Err(closeErr).Msg("Failed to close response body")
		}
	}()

	metrics.RecordUpstreamRequest("fhir", startTime, resp.StatusCode)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("FHIR server returned status %d for %s", resp.StatusCode, resourceType)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body for %s: %w", resourceType, err)
	}

	var bundle Bundle
	if err := json.Unmarshal(body, &bundle); err != nil {
		return nil, fmt.Errorf("failed to parse FHIR bundle for %s: %w", resourceType, err)
	}
	return &bundle, nil
}
