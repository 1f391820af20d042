package fetcher

import (
	"context"
	"io"
	"net/http"
	"net/url"
	"os"
	"sync"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/m4ck-y/nom024-Airflow/internal/model"
)

// HTTPOptions configures the HTTP fetcher.
type HTTPOptions struct {
	UserAgent string
	// Timeout bounds a whole request including the body read. Zero means no
	// timeout; callers impose deadlines through the context instead.
	Timeout time.Duration
	// RatePerHost limits requests per second to a single host. Zero uses the
	// default of 5.
	RatePerHost rate.Limit
	// Client overrides the underlying HTTP client (tests).
	Client *http.Client
}

// HTTPFetcher implements Fetcher using net/http with per-host rate limiting.
// Requests are attempted once; failures are returned to the caller.
type HTTPFetcher struct {
	client *http.Client
	opts   HTTPOptions

	mu       sync.Mutex
	limiters map[string]*rate.Limiter
}

// NewHTTPFetcher creates a new HTTPFetcher with the given options.
func NewHTTPFetcher(opts HTTPOptions) *HTTPFetcher {
	if opts.UserAgent == "" {
		opts.UserAgent = "ingest-cli/1.0"
	}
	if opts.RatePerHost == 0 {
		opts.RatePerHost = 5
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				Proxy:               http.ProxyFromEnvironment,
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		}
	}
	return &HTTPFetcher{
		client:   client,
		opts:     opts,
		limiters: make(map[string]*rate.Limiter),
	}
}

func (f *HTTPFetcher) limiterFor(rawURL string) *rate.Limiter {
	host := ""
	if u, err := url.Parse(rawURL); err == nil {
		host = u.Host
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	lim, ok := f.limiters[host]
	if !ok {
		burst := int(f.opts.RatePerHost)
		if burst < 1 {
			burst = 1
		}
		lim = rate.NewLimiter(f.opts.RatePerHost, burst)
		f.limiters[host] = lim
	}
	return lim
}

// Download fetches the URL and returns the response body.
func (f *HTTPFetcher) Download(ctx context.Context, rawURL string) (io.ReadCloser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, model.FetchError("create request", 0, eris.Wrap(err, rawURL))
	}
	req.Header.Set("User-Agent", f.opts.UserAgent)

	if err := f.limiterFor(rawURL).Wait(ctx); err != nil {
		return nil, model.FetchError("rate limiter wait", 0, eris.Wrap(err, rawURL))
	}

	start := time.Now()
	resp, err := f.client.Do(req)
	if err != nil {
		return nil, model.FetchError("get "+rawURL, 0, eris.Wrap(err, "http request"))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_ = resp.Body.Close()
		return nil, model.FetchError("get "+rawURL, resp.StatusCode, nil)
	}

	zap.L().Debug("http response",
		zap.String("url", rawURL),
		zap.Int("status", resp.StatusCode),
		zap.Int64("content_length", resp.ContentLength),
		zap.Duration("elapsed", time.Since(start)),
	)
	return resp.Body, nil
}

// DownloadToFile fetches the URL and streams it to the given path.
func (f *HTTPFetcher) DownloadToFile(ctx context.Context, rawURL string, path string) (int64, error) {
	body, err := f.Download(ctx, rawURL)
	if err != nil {
		return 0, err
	}
	defer body.Close() //nolint:errcheck

	return writeStream(body, path)
}

// writeStream copies r into a new file at path. A partially written file is
// removed on failure.
func writeStream(r io.Reader, path string) (int64, error) {
	file, err := os.Create(path)
	if err != nil {
		return 0, model.IOError("create file", eris.Wrap(err, path))
	}

	src := &readTracker{r: r}
	n, err := io.Copy(file, src)
	closeErr := file.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(path)
		if src.err != nil {
			return n, model.FetchError("read body", 0, eris.Wrap(src.err, path))
		}
		return n, model.IOError("write file", eris.Wrap(err, path))
	}

	return n, nil
}

// readTracker remembers the last non-EOF read error so a broken download can
// be told apart from a failed disk write.
type readTracker struct {
	r   io.Reader
	err error
}

func (t *readTracker) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && err != io.EOF {
		t.err = err
	}
	return n, err
}
