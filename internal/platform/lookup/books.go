package lookup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/compasshq/compass-backend/internal/platform/logger"
)

// ErrNotFound means the lookup completed but no matching item exists.
var ErrNotFound = errors.New("lookup: not found")

// BookResult is the canonical metadata for an independently verified book.
type BookResult struct {
	Title       string
	Authors     []string
	Description string
	Thumbnail   string
	InfoURL     string
}

// BookClient resolves a title/author query against a book metadata
// index. Used to reject fabricated recommendations.
type BookClient interface {
	Search(ctx context.Context, title, author string) (*BookResult, error)
}

type googleBooksClient struct {
	log        *logger.Logger
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func NewGoogleBooksClient(log *logger.Logger) BookClient {
	baseURL := strings.TrimSpace(os.Getenv("GOOGLE_BOOKS_BASE_URL"))
	if baseURL == "" {
		baseURL = "https://www.googleapis.com/books/v1"
	}
	return &googleBooksClient{
		log:        log.With("service", "GoogleBooksClient"),
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     strings.TrimSpace(os.Getenv("GOOGLE_BOOKS_API_KEY")),
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

type volumesResponse struct {
	TotalItems int `json:"totalItems"`
	Items      []struct {
		VolumeInfo struct {
			Title       string   `json:"title"`
			Authors     []string `json:"authors"`
			Description string   `json:"description"`
			InfoLink    string   `json:"infoLink"`
			ImageLinks  struct {
				Thumbnail string `json:"thumbnail"`
			} `json:"imageLinks"`
		} `json:"volumeInfo"`
	} `json:"items"`
}

func (c *googleBooksClient) Search(ctx context.Context, title, author string) (*BookResult, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, fmt.Errorf("title required")
	}

	q := fmt.Sprintf("intitle:%s", title)
	if a := strings.TrimSpace(author); a != "" {
		q += fmt.Sprintf(" inauthor:%s", a)
	}

	params := url.Values{}
	params.Set("q", q)
	params.Set("maxResults", "1")
	if c.apiKey != "" {
		params.Set("key", c.apiKey)
	}

	req, err := http.NewRequestWithContext(ctx, "GET", c.baseURL+"/volumes?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("books lookup http %d: %s", resp.StatusCode, string(raw))
	}

	var vr volumesResponse
	if err := json.Unmarshal(raw, &vr); err != nil {
		return nil, fmt.Errorf("books lookup decode: %w", err)
	}
	if vr.TotalItems == 0 || len(vr.Items) == 0 {
		return nil, ErrNotFound
	}

	info := vr.Items[0].VolumeInfo
	if strings.TrimSpace(info.Title) == "" {
		return nil, ErrNotFound
	}
	return &BookResult{
		Title:       info.Title,
		Authors:     info.Authors,
		Description: info.Description,
		Thumbnail:   info.ImageLinks.Thumbnail,
		InfoURL:     info.InfoLink,
	}, nil
}
