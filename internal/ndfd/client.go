package ndfd

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/shellcast/shellcast/internal/httputil"
)

// DefaultBaseURL is the NC State Climate Office THREDDS server hosting the
// historic NDFD forecast runs.
const DefaultBaseURL = "https://tds.climate.ncsu.edu/thredds/dodsC/nws/ndfd/"

// Opener turns a confirmed resource URL into a Dataset handle.
type Opener func(ctx context.Context, url string) (Dataset, error)

// Client resolves published NDFD forecast runs. Runs live at predictable
// per-timestamp paths; whether one exists is answered by probing the .html
// form of the resource, which the server only serves for published runs.
type Client struct {
	baseURL string
	http    *http.Client
	open    Opener
}

func NewClient(baseURL string, open Opener) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    httputil.NewClient(),
		open:    open,
	}
}

// WithTimeout replaces the probe client's timeout and returns the client for
// chaining during construction.
func (c *Client) WithTimeout(timeout time.Duration) *Client {
	c.http = httputil.NewClientWithTimeout(timeout)
	return c
}

// ProbeResult records the existence check for auditing.
type ProbeResult struct {
	URL        string
	HTTPStatus int
}

// Resolve builds the resource path for the given issuance time, probes for
// its existence, and opens the dataset when it is published. A nil Dataset
// with a nil error means the run is not published yet; forecast publication
// is intermittent, so callers must treat that as a routine outcome.
//
// Probe and open are single attempts with no retry. Transport failures
// propagate; the next scheduled run is the retry.
func (c *Client) Resolve(ctx context.Context, timestamp string) (Dataset, ProbeResult, error) {
	key, err := DeriveTimestampKey(timestamp)
	if err != nil {
		return nil, ProbeResult{}, err
	}

	dataURL := fmt.Sprintf("%s/%s/%s/%sds.midatlan.oper.bin",
		c.baseURL, key.YearMonth, key.YearMonthDay, key.YearMonthDayHour)
	probe := ProbeResult{URL: dataURL + ".html"}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, probe.URL, nil)
	if err != nil {
		return nil, probe, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, probe, fmt.Errorf("probe %s: %w", probe.URL, err)
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	probe.HTTPStatus = resp.StatusCode

	if resp.StatusCode != http.StatusOK {
		log.Printf("ndfd: no run published at %s (status %d)", key.YearMonthDayHour, resp.StatusCode)
		return nil, probe, nil
	}

	ds, err := c.open(ctx, dataURL)
	if err != nil {
		return nil, probe, fmt.Errorf("open %s: %w", dataURL, err)
	}
	return ds, probe, nil
}
