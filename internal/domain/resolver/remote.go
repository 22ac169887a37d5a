package resolver

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go_mock_dispatch/utils"

	"github.com/avast/retry-go/v4"
	"golang.org/x/sync/singleflight"
)

// maxRemoteBody caps a fetched definition document.
const maxRemoteBody = 4 << 20

// FetchOptions controls remote definition fetches.
type FetchOptions struct {
	Timeout  time.Duration
	Attempts uint
	Delay    time.Duration
}

// RemoteFetcher downloads definition documents from the remote content
// source. Concurrent fetches of one URL share a single request.
type RemoteFetcher struct {
	client  *http.Client
	opts    FetchOptions
	sfGroup singleflight.Group
}

func NewRemoteFetcher(client *http.Client, opts FetchOptions) *RemoteFetcher {
	if client == nil {
		client = &http.Client{}
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Attempts == 0 {
		opts.Attempts = 1
	}
	return &RemoteFetcher{client: client, opts: opts}
}

// Fetch returns the raw document at url. 4xx answers are not retried.
func (f *RemoteFetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	data, err, shared := f.sfGroup.Do("fetch_"+url, func() (interface{}, error) {
		var body []byte
		err := retry.Do(
			func() error {
				b, err := f.fetchOnce(ctx, url)
				if err != nil {
					return err
				}
				body = b
				return nil
			},
			retry.Context(ctx),
			retry.Attempts(f.opts.Attempts),
			retry.Delay(f.opts.Delay),
			retry.LastErrorOnly(true),
			retry.OnRetry(func(n uint, err error) {
				utils.GetLogger().Warnf("remote fetch %s attempt %d failed: %v", url, n+1, err)
			}),
		)
		if err != nil {
			return nil, err
		}
		return body, nil
	})
	if err != nil {
		return nil, fmt.Errorf("fetch remote definition %s: %w", url, err)
	}
	if shared {
		utils.GetLogger().Debugf("remote fetch %s shared with a concurrent caller", url)
	}
	return data.([]byte), nil
}

func (f *RemoteFetcher) fetchOnce(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, f.opts.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, retry.Unrecoverable(err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteBody))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 400 {
		statusErr := &StatusError{Code: resp.StatusCode, Body: truncate(string(body), 256)}
		if resp.StatusCode < 500 {
			return nil, retry.Unrecoverable(statusErr)
		}
		return nil, statusErr
	}
	return body, nil
}

// StatusError is a non-2xx answer from the remote content source.
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("remote source answered %d: %s", e.Code, e.Body)
}

// IsStatus reports whether err carries a remote answer with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
