package source

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gyaneshwarpardhi/upsell/internal/config"
)

// maxResponseBytes caps how much of a PostHog response is read.
const maxResponseBytes = 64 << 20

// PostHog fetches recent events from the PostHog events API. The response
// is the {"results": [...]} container the normalizer accepts as-is.
type PostHog struct {
	host      string
	projectID string
	apiKey    string
	limit     int
	client    *http.Client
}

// NewPostHog builds a client from config. API key and project are required.
func NewPostHog(conf config.PostHogConf, client *http.Client) (*PostHog, error) {
	if conf.APIKey == "" || conf.ProjectID == "" {
		return nil, fmt.Errorf("posthog: api_key and project_id are required for API access")
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	return &PostHog{
		host:      strings.TrimRight(conf.Host, "/"),
		projectID: conf.ProjectID,
		apiKey:    conf.APIKey,
		limit:     conf.Limit,
		client:    client,
	}, nil
}

// WithLimit returns a copy fetching n events per call.
func (p *PostHog) WithLimit(n int) *PostHog {
	cp := *p
	cp.limit = n
	return &cp
}

func (p *PostHog) eventsURL() string {
	u := fmt.Sprintf("%s/api/projects/%s/events/", p.host, url.PathEscape(p.projectID))
	if p.limit > 0 {
		u += "?" + url.Values{"limit": {strconv.Itoa(p.limit)}}.Encode()
	}
	return u
}

func (p *PostHog) Load(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.eventsURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("posthog: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+p.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("posthog: fetch events: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("posthog: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("posthog: fetch events: status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return body, nil
}
