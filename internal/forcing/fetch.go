package forcing

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"text/template"
	"time"

	"github.com/animus-labs/smsc-go/internal/config"
	"github.com/animus-labs/smsc-go/internal/retention"
	"github.com/animus-labs/smsc-go/internal/simerr"
)

// ErrSizeMismatch is returned when a download is shorter or longer than
// the advertised Content-Length.
var ErrSizeMismatch = errors.New("downloaded size does not match content length")

// Fetcher downloads provider products ahead of a simulation.
type Fetcher struct {
	client *http.Client
	logger *slog.Logger
	now    func() time.Time
	sleep  func(context.Context, time.Duration) error
}

type FetcherOption func(*Fetcher)

func WithClock(now func() time.Time) FetcherOption {
	return func(f *Fetcher) { f.now = now }
}

func WithSleep(sleep func(context.Context, time.Duration) error) FetcherOption {
	return func(f *Fetcher) { f.sleep = sleep }
}

func NewFetcher(client *http.Client, logger *slog.Logger, opts ...FetcherOption) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Minute}
	}
	if logger == nil {
		logger = slog.Default()
	}
	f := &Fetcher{client: client, logger: logger, now: time.Now, sleep: sleepContext}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// URLData is the value URL templates are executed with.
type URLData struct {
	Date  time.Time
	Start time.Time
	End   time.Time
}

// Fetch downloads one source for the operation date and prunes old
// downloads, keeping keep files. Mirrors in src.URLs are tried in order.
func (f *Fetcher) Fetch(ctx context.Context, src config.ForcingSource, opdate time.Time, keep int) (string, error) {
	start := opdate.AddDate(0, 0, -src.Hindcast)
	end := opdate.AddDate(0, 0, src.Forecast)

	if err := WaitForPublish(ctx, f.now().UTC(), end, src.PublishHour, f.sleep); err != nil {
		return "", err
	}

	dst := filepath.Join(src.DestDir, FileName(src.Name, start, end, src.Ext))
	data := URLData{Date: opdate, Start: start, End: end}
	var lastErr error
	for _, raw := range src.URLs {
		url, err := renderURL(raw, data)
		if err != nil {
			return "", simerr.Config("forcing", "source %s: %v", src.Name, err)
		}
		if err := f.download(ctx, url, dst); err != nil {
			f.logger.Warn("forcing download failed", "source", src.Name, "url", url, "error", err)
			lastErr = err
			continue
		}
		f.logger.Info("forcing downloaded", "source", src.Name, "file", dst)
		if _, err := retention.RemoveOldGlob(filepath.Join(src.DestDir, src.Name+"-*"), keep); err != nil {
			return dst, simerr.IO("prune forcing", err)
		}
		return dst, nil
	}
	return "", simerr.MissingInput(simerr.InputForcing, "source %s: every mirror failed: %v", src.Name, lastErr)
}

func (f *Fetcher) download(ctx context.Context, url, dst string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	resp, err := f.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("GET %s: status %d", url, resp.StatusCode)
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}
	tmp := dst + ".part"
	out, err := os.Create(tmp)
	if err != nil {
		return err
	}
	n, copyErr := io.Copy(out, resp.Body)
	closeErr := out.Close()
	if copyErr == nil {
		copyErr = closeErr
	}
	if copyErr == nil && resp.ContentLength >= 0 && n != resp.ContentLength {
		copyErr = fmt.Errorf("%w: got %d, want %d", ErrSizeMismatch, n, resp.ContentLength)
	}
	if copyErr != nil {
		_ = os.Remove(tmp)
		return copyErr
	}
	return os.Rename(tmp, dst)
}

// WaitForPublish blocks until publishHour of today has passed, but only
// when the requested range reaches today. Past ranges return immediately.
func WaitForPublish(ctx context.Context, now time.Time, rangeEnd time.Time, publishHour float64, sleep func(context.Context, time.Duration) error) error {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	if rangeEnd.Before(today) {
		return nil
	}
	target := today.Add(time.Duration(publishHour * float64(time.Hour)))
	wait := target.Sub(now)
	if wait <= 0 {
		return nil
	}
	return sleep(ctx, wait)
}

func renderURL(raw string, data URLData) (string, error) {
	tmpl, err := template.New("url").Option("missingkey=error").Parse(raw)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
