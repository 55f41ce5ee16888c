package repo

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/miradorstack/anomaly-timeline/internal/cache"
	"github.com/miradorstack/anomaly-timeline/internal/models"
)

// maxGraphBytes bounds the size of a single anomaly-graph payload.
const maxGraphBytes = 32 << 20

// AnomalyGraphClient fetches date-keyed anomaly collections from the anomaly-graph API.
type AnomalyGraphClient struct {
	baseURL    string
	graphPath  string
	httpClient *http.Client
	cache      cache.Provider
	cacheTTL   time.Duration
	location   *time.Location
	now        func() time.Time
}

// NewAnomalyGraphClient constructs a client targeting the configured data source. Zone-less
// timestamps in the payload are read in loc.
func NewAnomalyGraphClient(baseURL, graphPath string, timeout time.Duration, cacheProvider cache.Provider, cacheTTL time.Duration, loc *time.Location) *AnomalyGraphClient {
	if cacheProvider == nil {
		cacheProvider = cache.NoopProvider{}
	}
	if loc == nil {
		loc = time.Local
	}
	return &AnomalyGraphClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		graphPath: graphPath,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		cache:    cacheProvider,
		cacheTTL: cacheTTL,
		location: loc,
		now:      time.Now,
	}
}

// FetchGraph returns the current anomaly graph. Entries that fail boundary validation are
// reported in the graph's Quarantine rather than failing the fetch.
func (c *AnomalyGraphClient) FetchGraph(ctx context.Context) (models.AnomalyGraph, error) {
	if c == nil {
		return models.AnomalyGraph{}, fmt.Errorf("anomaly-graph client not initialised")
	}
	if c.baseURL == "" {
		return models.AnomalyGraph{}, fmt.Errorf("anomaly-graph base URL not configured")
	}

	endpoint := c.graphURL()
	key := cache.Key("graph", endpoint)
	if c.cacheTTL > 0 {
		if cached, err := c.cache.Get(ctx, key); err == nil {
			if graph, err := DecodeGraph(cached, c.location); err == nil {
				graph.FetchedAt = c.now().UTC()
				return graph, nil
			}
			_ = c.cache.Del(ctx, key)
		}
	}

	body, err := c.getJSON(ctx, endpoint)
	if err != nil {
		return models.AnomalyGraph{}, fmt.Errorf("anomaly-graph request failed: %w", err)
	}
	graph, err := DecodeGraph(body, c.location)
	if err != nil {
		return models.AnomalyGraph{}, err
	}
	graph.FetchedAt = c.now().UTC()

	if c.cacheTTL > 0 {
		_ = c.cache.Set(ctx, key, body, c.cacheTTL)
	}
	return graph, nil
}

func (c *AnomalyGraphClient) graphURL() string { return c.resolvePath(c.graphPath) }

func (c *AnomalyGraphClient) resolvePath(p string) string {
	if c.baseURL == "" {
		return ""
	}
	cleaned := "/" + strings.TrimLeft(p, "/")
	u, err := url.Parse(c.baseURL)
	if err != nil {
		return c.baseURL + cleaned
	}
	u.Path = path.Join(u.Path, cleaned)
	return u.String()
}

func (c *AnomalyGraphClient) getJSON(ctx context.Context, endpoint string) ([]byte, error) {
	if endpoint == "" {
		return nil, fmt.Errorf("empty endpoint")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("anomaly-graph returned %s", resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxGraphBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if len(body) > maxGraphBytes {
		return nil, fmt.Errorf("anomaly-graph payload exceeds %d bytes", maxGraphBytes)
	}
	return body, nil
}
