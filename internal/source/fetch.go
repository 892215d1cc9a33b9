package source

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/sweeney/okay-to-wake/internal/parse"
)

// ErrStatus is returned when the schedule server answers with a non-2xx status.
var ErrStatus = errors.New("unexpected status")

// Fetcher downloads a schedule payload over HTTP.
type Fetcher struct {
	client *resty.Client
	url    string
	kind   parse.Kind
}

// NewFetcher returns a Fetcher for url. kind may be empty, in which case the
// response Content-Type decides; otherwise it must name a known kind.
func NewFetcher(url, kind string, timeout time.Duration) (*Fetcher, error) {
	if url == "" {
		return nil, errors.New("fetch: empty url")
	}
	var k parse.Kind
	if kind != "" {
		var err error
		if k, err = parse.ParseKind(kind); err != nil {
			return nil, fmt.Errorf("fetch: %w", err)
		}
	}

	client := resty.New().
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(1*time.Second).
		SetRetryMaxWaitTime(5*time.Second).
		SetHeader("Accept", "text/plain, application/json, application/yaml")

	return &Fetcher{client: client, url: url, kind: k}, nil
}

// URL returns the address being fetched.
func (f *Fetcher) URL() string {
	return f.url
}

// Fetch downloads the payload and reports its kind.
func (f *Fetcher) Fetch(ctx context.Context) ([]byte, parse.Kind, error) {
	resp, err := f.client.R().SetContext(ctx).Get(f.url)
	if err != nil {
		return nil, "", fmt.Errorf("fetch %s: %w", f.url, err)
	}
	if !resp.IsSuccess() {
		return nil, "", fmt.Errorf("fetch %s: %w: %s", f.url, ErrStatus, resp.Status())
	}

	kind := f.kind
	if kind == "" {
		kind = parse.KindFromContentType(resp.Header().Get("Content-Type"))
	}
	return resp.Body(), kind, nil
}
