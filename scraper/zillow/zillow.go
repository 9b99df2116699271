package zillow

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"apartment-finder/metrics"
	"apartment-finder/models"
	"apartment-finder/utils"
)

const (
	searchPath = "/propertyExtendedSearch"
	statusType = "ForRent"
)

// errForbidden marks an endpoint that rejected our credentials.
var errForbidden = errors.New("forbidden")

// Options configures a Client.
type Options struct {
	// Endpoints are the API base URLs tried in order, e.g.
	// https://zillow-com1.p.rapidapi.com.
	Endpoints  []string
	APIKey     string
	MaxResults int
	PageDelay  time.Duration
	Timeout    time.Duration
}

// Client pulls rental listings from the RapidAPI Zillow search endpoints,
// failing over between alternate hosts.
type Client struct {
	opts    Options
	http    *http.Client
	logger  *utils.Logger
	metrics *metrics.Pipeline
}

// New creates a ready-to-use listing Client.
func New(opts Options, logger *utils.Logger, m *metrics.Pipeline) *Client {
	if opts.MaxResults <= 0 {
		opts.MaxResults = 100
	}
	return &Client{
		opts:    opts,
		http:    &http.Client{Timeout: opts.Timeout},
		logger:  logger,
		metrics: m,
	}
}

type searchResponse struct {
	Props []models.RawListing `json:"props"`
}

// Fetch returns up to MaxResults listings for the area and rent band, keyed
// by listing ID (duplicates dropped, first occurrence wins, API order kept).
// It never fails: when every endpoint is unusable the result is empty.
func (c *Client) Fetch(ctx context.Context, area models.SearchArea, band models.RentBand) []models.RawListing {
	for _, endpoint := range c.opts.Endpoints {
		listings, err := c.fetchFrom(ctx, endpoint, area, band)
		if err == nil {
			c.logger.Info("[zillow] %s returned %d listings", endpoint, len(listings))
			c.metrics.ListingsFetched(len(listings))
			return listings
		}

		if errors.Is(err, errForbidden) {
			c.logger.Warn("[zillow] %s rejected our credentials (403), trying next host", endpoint)
			c.metrics.EndpointFailed("forbidden")
		} else {
			c.logger.Warn("[zillow] %s failed: %v, trying next host", endpoint, err)
			c.metrics.EndpointFailed("error")
		}

		if ctx.Err() != nil {
			break
		}
	}

	c.logger.Error("[zillow] All %d listing endpoints failed, returning no listings", len(c.opts.Endpoints))
	return []models.RawListing{}
}

// fetchFrom pages through one endpoint. Any error discards what the endpoint
// returned so far.
func (c *Client) fetchFrom(ctx context.Context, endpoint string, area models.SearchArea, band models.RentBand) ([]models.RawListing, error) {
	limiter := utils.NewPageLimiter(c.opts.PageDelay)
	seen := utils.NewIDSet()
	out := make([]models.RawListing, 0, c.opts.MaxResults)

	for page := 1; ; page++ {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}

		batch, err := c.fetchPage(ctx, endpoint, area, band, page)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", page, err)
		}
		if len(batch) == 0 {
			c.logger.Debug("[zillow] %s page %d empty, stopping", endpoint, page)
			return out, nil
		}

		added := 0
		for _, l := range batch {
			id := string(l.ID)
			if id != "" && !seen.Add(id) {
				c.logger.Debug("[zillow] Skipping duplicate listing %s", id)
				continue
			}
			out = append(out, l)
			added++
		}

		c.logger.Debug("[zillow] %s page %d: %d listings, %d collected", endpoint, page, len(batch), len(out))

		if len(out) >= c.opts.MaxResults {
			return out[:c.opts.MaxResults], nil
		}
		// a page of nothing but repeats means the API is cycling
		if added == 0 {
			return out, nil
		}
	}
}

func (c *Client) fetchPage(ctx context.Context, endpoint string, area models.SearchArea, band models.RentBand, page int) ([]models.RawListing, error) {
	u, err := url.Parse(endpoint + searchPath)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}

	params := url.Values{}
	params.Set("coordinates", area.String())
	params.Set("status_type", statusType)
	params.Set("rentMin", strconv.Itoa(band.Min))
	params.Set("rentMax", strconv.Itoa(band.Max))
	params.Set("page", strconv.Itoa(page))
	u.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("X-RapidAPI-Key", c.opts.APIKey)
	req.Header.Set("X-RapidAPI-Host", u.Host)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusForbidden {
		return nil, errForbidden
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("HTTP %d: %s", resp.StatusCode, body)
	}

	var sr searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&sr); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return sr.Props, nil
}
