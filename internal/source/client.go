package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"redwatch/pkg/platform/sentinel"
)

// Query is one partition filter for a catalog search.
type Query struct {
	Nationality string
	AgeMin      int
	AgeMax      int
	PageSize    int
}

// Client fetches catalog pages, detail documents, and images from the external
// notice source. It is constructed once per process and passed in explicitly;
// there are no package-level client handles.
type Client struct {
	baseURL   string
	userAgent string
	http      *http.Client
}

// New builds a source client. The timeout bounds every request, including the
// image downloads done during enrichment.
func New(baseURL, userAgent string, timeout time.Duration) *Client {
	return &Client{
		baseURL:   baseURL,
		userAgent: userAgent,
		http:      &http.Client{Timeout: timeout},
	}
}

// SearchPage fetches one page of notices for a partition. It returns both the
// decoded envelope (so the caller can see notice counts) and the raw body,
// which the producer publishes verbatim as the queue message payload.
func (c *Client) SearchPage(ctx context.Context, q Query) (*Page, []byte, error) {
	params := url.Values{}
	if q.Nationality != "" {
		params.Set("nationality", q.Nationality)
	}
	if q.AgeMax > 0 {
		params.Set("ageMin", strconv.Itoa(q.AgeMin))
		params.Set("ageMax", strconv.Itoa(q.AgeMax))
	}
	if q.PageSize > 0 {
		params.Set("resultPerPage", strconv.Itoa(q.PageSize))
	}
	params.Set("page", "1")

	raw, err := c.get(ctx, c.baseURL+"?"+params.Encode())
	if err != nil {
		return nil, nil, err
	}

	var page Page
	if err := json.Unmarshal(raw, &page); err != nil {
		return nil, nil, fmt.Errorf("decode search page: %w", err)
	}
	return &page, raw, nil
}

// Detail fetches a notice's detail document by its self link.
func (c *Client) Detail(ctx context.Context, href string) (*Detail, []byte, error) {
	raw, err := c.get(ctx, href)
	if err != nil {
		return nil, nil, err
	}
	var detail Detail
	if err := json.Unmarshal(raw, &detail); err != nil {
		return nil, nil, fmt.Errorf("decode detail: %w", err)
	}
	return &detail, raw, nil
}

// ImageList fetches a notice's image gallery.
func (c *Client) ImageList(ctx context.Context, href string) (*ImageList, error) {
	raw, err := c.get(ctx, href)
	if err != nil {
		return nil, err
	}
	var list ImageList
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("decode image list: %w", err)
	}
	return &list, nil
}

// FetchImage downloads raw image bytes.
func (c *Client) FetchImage(ctx context.Context, href string) ([]byte, error) {
	return c.get(ctx, href)
}

func (c *Client) get(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("get %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return nil, fmt.Errorf("get %s: %w", rawURL, sentinel.ErrRateLimited)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("get %s: unexpected status %d", rawURL, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", rawURL, err)
	}
	return body, nil
}
