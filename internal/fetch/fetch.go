package fetch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sirupsen/logrus"

	"github.com/sellergrid/catsync/internal/syncerror"
)

const (
	// maxRetries is the number of retries after the initial attempt,
	// giving up to 3 attempts per page.
	maxRetries = 2

	initialBackoff = 250 * time.Millisecond
)

// Client fetches pages of the external item catalog.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

func NewClient(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: timeout},
	}
}

// Page holds one fetched catalog page. Payload is the raw JSON array exactly
// as returned by the API; it is written to the chunk file verbatim.
type Page struct {
	Payload []byte
	Records int
	// Total is the catalog size reported by the X-Total-Count header,
	// or 0 when the API did not report one.
	Total int
}

// FetchPage fetches one page of the catalog at the given page size.
// Transient transport failures (network errors, 5xx, rate limits) are retried
// with bounded exponential backoff; other 4xx responses propagate immediately.
func (c *Client) FetchPage(ctx context.Context, pageSize, pageNumber int) (*Page, error) {
	url := fmt.Sprintf("%s/items?page=%d&page_size=%d", c.baseURL, pageNumber, pageSize)
	return c.fetch(ctx, url)
}

// FetchAll fetches the entire catalog in a single request. Intended for small
// catalogs only; the chunked download path uses FetchPage so the orchestrator
// controls the memory footprint.
func (c *Client) FetchAll(ctx context.Context) (*Page, error) {
	return c.fetch(ctx, c.baseURL+"/items")
}

func (c *Client) fetch(ctx context.Context, url string) (*Page, error) {
	var page *Page

	operation := func() error {
		p, err := c.doFetch(ctx, url)
		if err != nil {
			if syncerror.Retryable(err) {
				logrus.Warnf("catalog request failed, retrying: %v", err)
				return err
			}
			return backoff.Permanent(err)
		}
		page = p
		return nil
	}

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = initialBackoff

	err := backoff.Retry(operation, backoff.WithContext(backoff.WithMaxRetries(policy, maxRetries), ctx))
	if err != nil {
		return nil, err
	}
	return page, nil
}

func (c *Client) doFetch(ctx context.Context, url string) (*Page, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, syncerror.SyncError{Code: syncerror.ErrTransient, Message: "catalog request failed", Details: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
		return nil, syncerror.SyncError{
			Code:    syncerror.ErrTransient,
			Message: fmt.Sprintf("catalog returned status %d", resp.StatusCode),
		}
	}
	if resp.StatusCode == http.StatusNotFound {
		return nil, syncerror.SyncError{Code: syncerror.ErrNotFound, Message: "catalog page not found"}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, syncerror.SyncError{
			Code:    syncerror.ErrInternal,
			Message: fmt.Sprintf("catalog rejected request with status %d", resp.StatusCode),
		}
	}

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, syncerror.SyncError{Code: syncerror.ErrTransient, Message: "reading catalog response", Details: err}
	}

	count, err := countRecords(payload)
	if err != nil {
		return nil, syncerror.SyncError{Code: syncerror.ErrMalformed, Message: "catalog payload is not a JSON array", Details: err}
	}

	page := &Page{Payload: payload, Records: count}
	if total := resp.Header.Get("X-Total-Count"); total != "" {
		n, err := strconv.Atoi(total)
		if err == nil && n >= 0 {
			page.Total = n
		}
	}
	return page, nil
}

// countRecords parses just enough of the payload to learn how many records it
// holds. The raw messages are discarded immediately; only the count survives.
func countRecords(payload []byte) (int, error) {
	var records []json.RawMessage
	if err := json.Unmarshal(payload, &records); err != nil {
		return 0, err
	}
	return len(records), nil
}
