package search

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/hupe1980/healthbot/logging"
)

// TavilyBaseURL is the public Tavily API endpoint.
const TavilyBaseURL = "https://api.tavily.com"

// TavilyOptions configures the Tavily client.
type TavilyOptions struct {
	BaseURL     string
	SearchDepth string
	Timeout     time.Duration
	MaxRetries  int
	Logger      logging.Logger
}

// Tavily is a Searcher backed by the Tavily search API.
type Tavily struct {
	apiKey string
	opts   TavilyOptions
	http   *resty.Client
}

var _ Searcher = (*Tavily)(nil)

type tavilyRequest struct {
	APIKey      string `json:"api_key"`
	Query       string `json:"query"`
	MaxResults  int    `json:"max_results,omitempty"`
	SearchDepth string `json:"search_depth,omitempty"`
}

type tavilyResponse struct {
	Query   string   `json:"query"`
	Results []Result `json:"results"`
}

type tavilyError struct {
	Detail any `json:"detail"`
}

// NewTavily creates a Tavily client. Requests are retried on transport
// errors, 5xx and 429 responses.
func NewTavily(apiKey string, optFns ...func(o *TavilyOptions)) *Tavily {
	opts := TavilyOptions{
		BaseURL:     TavilyBaseURL,
		SearchDepth: "basic",
		Timeout:     15 * time.Second,
		MaxRetries:  2,
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	if opts.Logger == nil {
		opts.Logger = logging.NoOpLogger{}
	}

	logger := opts.Logger

	client := resty.New().
		SetBaseURL(opts.BaseURL).
		SetTimeout(opts.Timeout).
		SetRetryCount(opts.MaxRetries).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			if err != nil || r == nil {
				return true
			}

			return r.StatusCode() >= 500 || r.StatusCode() == 429
		}).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	client.OnAfterResponse(func(_ *resty.Client, resp *resty.Response) error {
		logger.Debug("tavily response", "status", resp.StatusCode(), "duration", resp.Time())
		return nil
	})

	return &Tavily{apiKey: apiKey, opts: opts, http: client}
}

// Search implements Searcher.
func (t *Tavily) Search(ctx context.Context, query string, maxResults int) ([]Result, error) {
	var (
		out    tavilyResponse
		errOut tavilyError
	)

	resp, err := t.http.R().
		SetContext(ctx).
		SetBody(tavilyRequest{
			APIKey:      t.apiKey,
			Query:       query,
			MaxResults:  maxResults,
			SearchDepth: t.opts.SearchDepth,
		}).
		SetResult(&out).
		SetError(&errOut).
		Post("/search")
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrSearchFailed, err)
	}

	if resp.IsError() {
		return nil, fmt.Errorf("%w: status %d: %v", ErrSearchFailed, resp.StatusCode(), errOut.Detail)
	}

	results := out.Results
	if maxResults > 0 && len(results) > maxResults {
		results = results[:maxResults]
	}

	return results, nil
}
