// Package download implements the Downloader: plain fetch, resumable
// fetch, and a bounded-concurrency batch fetch, all built on the shared
// SSRF-hardened HTTP client.
package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/brewkeg/brewkeg/internal/brewerr"
	"github.com/brewkeg/brewkeg/internal/httputil"
	"github.com/brewkeg/brewkeg/internal/log"
)

// ProgressFunc is invoked as bytes arrive.
// total is -1 when unknown (e.g. server omitted Content-Range's */N suffix).
type ProgressFunc func(downloaded, total int64)

// Downloader fetches archives over HTTP(S) with resumable, bounded-fanout
// downloads.
type Downloader struct {
	client      *http.Client
	concurrency int
	logger      log.Logger
}

// New returns a Downloader using a secure client with the given wall-clock
// timeout and a fetch_many fan-out bound of concurrency.
func New(timeout time.Duration, concurrency int) *Downloader {
	opts := httputil.DefaultOptions()
	if timeout > 0 {
		opts.Timeout = timeout
	}
	return &Downloader{
		client:      httputil.NewSecureClient(opts),
		concurrency: concurrency,
		logger:      log.Default(),
	}
}

// Fetch performs a GET to url and streams the body to dest, creating
// parent directories as needed. Fails DownloadFailed on a non-2xx status.
func (d *Downloader) Fetch(ctx context.Context, url, dest string, progress ProgressFunc) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return brewerr.NewDownloadFailed(url, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return brewerr.NewDownloadFailed(url, err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return brewerr.NewDownloadFailed(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return brewerr.NewDownloadFailed(url, fmt.Errorf("status %d", resp.StatusCode))
	}
	warnIfHTML(d.logger, url, resp.Header.Get("Content-Type"))

	f, err := os.Create(dest)
	if err != nil {
		return brewerr.NewDownloadFailed(url, err)
	}
	defer f.Close()

	return streamWithProgress(f, resp.Body, resp.ContentLength, progress)
}

// FetchResume resumes a partial download at dest: if dest exists with
// size n > 0, issues Range: bytes=n-; accepts 200 or 206; derives total
// size from Content-Range when present; opens append-only on resume.
func (d *Downloader) FetchResume(ctx context.Context, url, dest string, progress ProgressFunc) error {
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return brewerr.NewDownloadFailed(url, err)
	}

	var offset int64
	if info, err := os.Stat(dest); err == nil && info.Size() > 0 {
		offset = info.Size()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return brewerr.NewDownloadFailed(url, err)
	}
	if offset > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", offset))
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return brewerr.NewDownloadFailed(url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusPartialContent {
		return brewerr.NewDownloadFailed(url, fmt.Errorf("status %d", resp.StatusCode))
	}
	warnIfHTML(d.logger, url, resp.Header.Get("Content-Type"))

	flags := os.O_CREATE | os.O_WRONLY
	if resp.StatusCode == http.StatusPartialContent {
		flags |= os.O_APPEND
	} else {
		flags |= os.O_TRUNC
		offset = 0
	}
	f, err := os.OpenFile(dest, flags, 0644)
	if err != nil {
		return brewerr.NewDownloadFailed(url, err)
	}
	defer f.Close()

	total := totalSizeFromContentRange(resp.Header.Get("Content-Range"))
	if total < 0 && resp.ContentLength >= 0 {
		total = offset + resp.ContentLength
	}

	return streamWithProgress(f, resp.Body, total-offset, func(downloaded, remTotal int64) {
		if progress == nil {
			return
		}
		if remTotal < 0 {
			progress(offset+downloaded, -1)
		} else {
			progress(offset+downloaded, offset+remTotal)
		}
	})
}

// FetchPair is one (url, dest) pair for a batch fetch_many call.
type FetchPair struct {
	URL  string
	Dest string
}

// FetchMany executes fetch_resume concurrently for every pair, bounded by
// the Downloader's configured concurrency. All started tasks run to
// completion; the first failure (by pair order) is returned after every
// task has settled — no cancellation of in-flight peers.
func (d *Downloader) FetchMany(ctx context.Context, pairs []FetchPair) error {
	limit := d.concurrency
	if limit <= 0 {
		limit = 1
	}
	g := new(errgroup.Group)
	g.SetLimit(limit)

	errs := make([]error, len(pairs))
	for i, p := range pairs {
		i, p := i, p
		g.Go(func() error {
			errs[i] = d.FetchResume(ctx, p.URL, p.Dest, nil)
			return nil
		})
	}
	_ = g.Wait()

	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

func streamWithProgress(w io.Writer, r io.Reader, total int64, progress ProgressFunc) error {
	if progress == nil {
		_, err := io.Copy(w, r)
		return err
	}
	var downloaded int64
	buf := make([]byte, 32*1024)
	for {
		n, readErr := r.Read(buf)
		if n > 0 {
			if _, err := w.Write(buf[:n]); err != nil {
				return err
			}
			downloaded += int64(n)
			progress(downloaded, total)
		}
		if readErr == io.EOF {
			return nil
		}
		if readErr != nil {
			return readErr
		}
	}
}

// totalSizeFromContentRange parses the "*/N" suffix of a Content-Range
// header, returning -1 when absent or malformed (indeterminate progress).
func totalSizeFromContentRange(header string) int64 {
	idx := strings.LastIndex(header, "/")
	if idx < 0 || idx == len(header)-1 {
		return -1
	}
	suffix := header[idx+1:]
	if suffix == "*" {
		return -1
	}
	n, err := strconv.ParseInt(suffix, 10, 64)
	if err != nil {
		return -1
	}
	return n
}

func warnIfHTML(logger log.Logger, url, contentType string) {
	if strings.Contains(strings.ToLower(contentType), "text/html") {
		logger.Warn("unexpected HTML content-type for download", "url", url, "content_type", contentType)
	}
}
