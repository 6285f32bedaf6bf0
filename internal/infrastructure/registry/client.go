package registry

import (
	"context"
	"encoding/json"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"ProviderDirectory/internal/config"
	"ProviderDirectory/internal/domain"
	"ProviderDirectory/internal/ports"
)

// Client queries the NPI registry with bounded retries. It implements
// the never-raises contract: every failure mode collapses to nil/empty
// and is only logged, so a registry outage degrades the build instead
// of failing it.
type Client struct {
	httpClient  *http.Client
	apiURL      string
	version     string
	state       string
	pageSize    int
	maxAttempts int
	backoffBase time.Duration
	logger      *slog.Logger

	// sleep is swapped out in tests.
	sleep func(time.Duration)
}

var _ ports.RegistrySource = (*Client)(nil)

// retryableStatus marks transient upstream conditions worth another
// attempt; everything else non-200 is treated as "no data".
var retryableStatus = map[int]bool{
	http.StatusRequestTimeout:      true,
	http.StatusTooManyRequests:     true,
	http.StatusInternalServerError: true,
	http.StatusBadGateway:          true,
	http.StatusServiceUnavailable:  true,
	http.StatusGatewayTimeout:      true,
}

// NewClient wires an HTTP client from registry configuration.
func NewClient(cfg config.RegistryConfig, client *http.Client, logger *slog.Logger) *Client {
	if client == nil {
		client = &http.Client{Timeout: cfg.Timeout.Std()}
	}
	pageSize := cfg.PageSize
	if pageSize <= 0 {
		pageSize = 200
	}
	attempts := cfg.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	return &Client{
		httpClient:  client,
		apiURL:      cfg.APIURL,
		version:     cfg.Version,
		state:       cfg.State,
		pageSize:    pageSize,
		maxAttempts: attempts,
		backoffBase: cfg.BackoffBase.Std(),
		logger:      logger,
		sleep:       time.Sleep,
	}
}

type page struct {
	ResultCount int                `json:"result_count"`
	Results     []domain.RawRecord `json:"results"`
}

// FetchSeed returns every record the registry holds for one seed city,
// walking result pages as needed. A page that cannot be fetched
// contributes zero records without aborting the remaining pages.
func (c *Client) FetchSeed(ctx context.Context, city string) []domain.RawRecord {
	first := c.fetchPage(ctx, city, 0)
	if first == nil {
		return nil
	}

	results := first.Results
	total := first.ResultCount
	if total <= c.pageSize {
		return results
	}

	pages := int(math.Ceil(float64(total) / float64(c.pageSize)))
	for p := 1; p < pages; p++ {
		next := c.fetchPage(ctx, city, p*c.pageSize)
		if next == nil {
			continue
		}
		results = append(results, next.Results...)
	}

	return results
}

// fetchPage issues one registry request with retry on transient
// failures. Returns nil on any terminal failure.
func (c *Client) fetchPage(ctx context.Context, city string, skip int) *page {
	params := url.Values{}
	params.Set("version", c.version)
	params.Set("state", c.state)
	params.Set("city", city)
	params.Set("limit", strconv.Itoa(c.pageSize))
	params.Set("skip", strconv.Itoa(skip))
	pageURL := c.apiURL + "?" + params.Encode()

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		result, retry := c.tryOnce(ctx, pageURL)
		if result != nil {
			return result
		}
		if !retry || attempt == c.maxAttempts {
			return nil
		}
		c.debug("registry retry", "city", city, "skip", skip, "attempt", attempt)
		c.sleep(c.backoffBase * time.Duration(attempt))
	}

	return nil
}

// tryOnce performs a single GET. The second return value reports
// whether the failure was transient.
func (c *Client) tryOnce(ctx context.Context, pageURL string) (*page, bool) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		c.debug("registry request build failed", "error", err)
		return nil, false
	}
	req.Header.Set("User-Agent", "ProviderDirectory/1.0")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		// Transport errors and timeouts count as transient.
		c.debug("registry request failed", "error", err)
		return nil, true
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.debug("registry non-200", "status", resp.Status)
		return nil, retryableStatus[resp.StatusCode]
	}

	var result page
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		c.debug("registry decode failed", "error", err)
		return nil, false
	}

	return &result, false
}

func (c *Client) debug(msg string, args ...any) {
	if c.logger != nil {
		c.logger.Debug(msg, args...)
	}
}
