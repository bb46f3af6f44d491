// Package freshness decides whether a cached completed result still
// references live figpack cloud data.
//
// The coordinator must never hand back a cached result whose figures have been
// deleted or have expired upstream, so every cache hit is probed before it is
// returned. Any probe failure counts as stale.
package freshness

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/flatironinstitute/runpack/internal/logger"
)

// urlFieldName is the output field whose string values are probed.
const urlFieldName = "figpack_url"

// DefaultProbeTimeout bounds each outbound figpack.json fetch.
const DefaultProbeTimeout = 10 * time.Second

// Checker probes figpack URLs referenced by cached job output.
type Checker struct {
	client *http.Client
}

// NewChecker creates a checker with the default probe timeout.
func NewChecker() *Checker {
	return &Checker{
		client: &http.Client{Timeout: DefaultProbeTimeout},
	}
}

// NewCheckerWithClient creates a checker using the given HTTP client.
func NewCheckerWithClient(client *http.Client) *Checker {
	return &Checker{client: client}
}

// Valid reports whether every figpack URL referenced by the output still
// points at live cloud data. Output with no figpack URLs is always valid.
// Probes run in parallel and all of them are awaited; any stale or failed
// probe makes the result false.
func (c *Checker) Valid(ctx context.Context, output json.RawMessage) bool {
	urls := CollectURLs(output)
	if len(urls) == 0 {
		return true
	}

	results := make(chan bool, len(urls))
	for _, u := range urls {
		go func(u string) {
			results <- c.probe(ctx, u)
		}(u)
	}

	valid := true
	for range urls {
		if !<-results {
			valid = false
		}
	}
	return valid
}

// CollectURLs recursively walks the output document and returns every string
// value held by a field named figpack_url.
func CollectURLs(output json.RawMessage) []string {
	if len(output) == 0 {
		return nil
	}
	var doc interface{}
	if err := json.Unmarshal(output, &doc); err != nil {
		return nil
	}
	var urls []string
	walk(doc, &urls)
	return urls
}

func walk(node interface{}, urls *[]string) {
	switch v := node.(type) {
	case map[string]interface{}:
		for key, value := range v {
			if key == urlFieldName {
				if s, ok := value.(string); ok {
					*urls = append(*urls, s)
					continue
				}
			}
			walk(value, urls)
		}
	case []interface{}:
		for _, elem := range v {
			walk(elem, urls)
		}
	}
}

// probe fetches the figpack.json next to the figure's index.html and checks
// that the figure is neither deleted nor expired.
func (c *Checker) probe(ctx context.Context, figureURL string) bool {
	if !strings.HasSuffix(figureURL, "/index.html") {
		logger.Debugf("Freshness probe rejected malformed figure URL: %s", figureURL)
		return false
	}
	metaURL := strings.TrimSuffix(figureURL, "index.html") + "figpack.json"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, metaURL, nil)
	if err != nil {
		return false
	}

	resp, err := c.client.Do(req)
	if err != nil {
		logger.Debugf("Freshness probe fetch failed for %s: %v", metaURL, err)
		return false
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		logger.Debugf("Freshness probe got status %d for %s", resp.StatusCode, metaURL)
		return false
	}

	var meta map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		logger.Debugf("Freshness probe got unparseable document for %s: %v", metaURL, err)
		return false
	}

	return figureLive(meta)
}

// figureLive applies the liveness rule: deleted must be falsy, and the figure
// must be either pinned or carry a numeric expiration in the future.
func figureLive(meta map[string]interface{}) bool {
	if truthy(meta["deleted"]) {
		return false
	}
	if pinned, ok := meta["pinned"].(bool); ok && pinned {
		return true
	}
	expiration, ok := meta["expiration"].(float64)
	if !ok {
		return false
	}
	return expiration > float64(time.Now().UnixMilli())
}

func truthy(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case float64:
		return v != 0
	case string:
		return v != ""
	default:
		return true
	}
}
