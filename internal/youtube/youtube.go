// Package youtube resolves video identifiers and fetches public metadata.
package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"
)

const defaultOEmbedURL = "https://www.youtube.com/oembed"

// videoIDPattern matches the 11-character id after the known URL shapes:
// watch?v=, &v=, youtu.be/, embed/, shorts/, live/, v/, vi/ and u/x/.
var videoIDPattern = regexp.MustCompile(`(?:youtu\.be/|/v/|/vi/|/u/\w/|/embed/|/shorts/|/live/|[?&]vi?=)([A-Za-z0-9_-]{11})(?:[^A-Za-z0-9_-]|$)`)

// ExtractVideoID returns the video id in rawURL, or "" when none matches.
func ExtractVideoID(rawURL string) string {
	m := videoIDPattern.FindStringSubmatch(strings.TrimSpace(rawURL))
	if len(m) < 2 {
		return ""
	}
	return m[1]
}

// WatchURL is the canonical URL for id.
func WatchURL(id string) string {
	return "https://www.youtube.com/watch?v=" + id
}

// ThumbnailURL is the medium-quality still for id.
func ThumbnailURL(id string) string {
	return "https://img.youtube.com/vi/" + id + "/mqdefault.jpg"
}

// Metadata is the subset of the oEmbed reply used for prompt grounding.
type Metadata struct {
	Title      string `json:"title"`
	AuthorName string `json:"author_name"`
}

// MetadataFetcher looks up public metadata for a video URL.
type MetadataFetcher interface {
	Fetch(ctx context.Context, videoURL string) (Metadata, error)
}

// OEmbedClient calls the public oEmbed endpoint.
type OEmbedClient struct {
	endpoint   string
	httpClient *http.Client
}

// NewOEmbedClient builds a client; an empty endpoint uses YouTube's.
func NewOEmbedClient(endpoint string) *OEmbedClient {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		endpoint = defaultOEmbedURL
	}
	return &OEmbedClient{
		endpoint:   endpoint,
		httpClient: &http.Client{Timeout: 5 * time.Second},
	}
}

// Fetch returns title and author for videoURL.
func (c *OEmbedClient) Fetch(ctx context.Context, videoURL string) (Metadata, error) {
	q := url.Values{}
	q.Set("url", videoURL)
	q.Set("format", "json")
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return Metadata{}, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Metadata{}, fmt.Errorf("oembed request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return Metadata{}, fmt.Errorf("oembed status: %s", resp.Status)
	}
	var meta Metadata
	if err := json.NewDecoder(resp.Body).Decode(&meta); err != nil {
		return Metadata{}, fmt.Errorf("oembed decode: %w", err)
	}
	return meta, nil
}
