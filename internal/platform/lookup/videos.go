package lookup

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/compasshq/compass-backend/internal/platform/logger"
)

// VideoResult is the canonical metadata for an independently verified video.
type VideoResult struct {
	Title     string
	Channel   string
	URL       string
	Thumbnail string
}

// VideoClient verifies that a video URL resolves to a real, publicly
// discoverable video and returns its canonical metadata.
type VideoClient interface {
	Resolve(ctx context.Context, videoURL string) (*VideoResult, error)
}

type youtubeOEmbedClient struct {
	log        *logger.Logger
	baseURL    string
	httpClient *http.Client
}

func NewYouTubeClient(log *logger.Logger) VideoClient {
	baseURL := strings.TrimSpace(os.Getenv("YOUTUBE_OEMBED_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://www.youtube.com/oembed"
	}
	return &youtubeOEmbedClient{
		log:        log.With("service", "YouTubeClient"),
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type oembedResponse struct {
	Title        string `json:"title"`
	AuthorName   string `json:"author_name"`
	ThumbnailURL string `json:"thumbnail_url"`
}

func (c *youtubeOEmbedClient) Resolve(ctx context.Context, videoURL string) (*VideoResult, error) {
	videoURL = strings.TrimSpace(videoURL)
	if videoURL == "" {
		return nil, fmt.Errorf("video url required")
	}
	if u, err := url.Parse(videoURL); err != nil || u.Scheme == "" || u.Host == "" {
		return nil, ErrNotFound
	}

	params := url.Values{}
	params.Set("url", videoURL)
	params.Set("format", "json")

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	// oEmbed answers 404/400 for unknown or private videos.
	if resp.StatusCode == http.StatusNotFound || resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnauthorized {
		return nil, ErrNotFound
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("video lookup http %d: %s", resp.StatusCode, string(raw))
	}

	var or oembedResponse
	if err := json.Unmarshal(raw, &or); err != nil {
		return nil, fmt.Errorf("video lookup decode: %w", err)
	}
	if strings.TrimSpace(or.Title) == "" {
		return nil, ErrNotFound
	}
	return &VideoResult{
		Title:     or.Title,
		Channel:   or.AuthorName,
		URL:       videoURL,
		Thumbnail: or.ThumbnailURL,
	}, nil
}
