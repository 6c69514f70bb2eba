// Package acquire makes sure the run's inputs are present: it downloads the
// dataset and metadata archives when missing, unpacks the surface-normal
// metadata and copies the split definition next to the output.
package acquire

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/banshee-data/nyuv2/internal/fsutil"
	"github.com/banshee-data/nyuv2/internal/httputil"
	"github.com/banshee-data/nyuv2/internal/monitoring"
	"github.com/banshee-data/nyuv2/internal/timeutil"
)

// ErrMissingInput is returned when a required input file is absent and
// cannot be fetched.
var ErrMissingInput = errors.New("required input missing")

// Fetcher downloads remote inputs onto a FileSystem.
type Fetcher struct {
	Client httputil.Doer
	FS     fsutil.FileSystem
	Clock  timeutil.Clock
	// LogEvery is the number of bytes between progress lines.
	LogEvery int64
}

// NewFetcher returns a Fetcher on the OS filesystem.
func NewFetcher() *Fetcher {
	return &Fetcher{
		Client:   http.DefaultClient,
		FS:       fsutil.OSFileSystem{},
		Clock:    timeutil.RealClock{},
		LogEvery: 64 << 20,
	}
}

// Ensure makes path exist, downloading it from url when it is absent. With
// an empty url or download disabled a missing file is ErrMissingInput.
// Returns whether a download happened.
func (f *Fetcher) Ensure(ctx context.Context, path, url string, download bool) (bool, error) {
	if f.FS.Exists(path) {
		return false, nil
	}
	if !download || url == "" {
		return false, fmt.Errorf("%s: %w", path, ErrMissingInput)
	}
	monitoring.Logf("downloading %s from %s", path, url)
	if err := f.Download(ctx, url, path); err != nil {
		return false, err
	}
	return true, nil
}

// Download fetches url into path. The body is written to path+".part" and
// renamed into place only after it is complete.
func (f *Fetcher) Download(ctx context.Context, url, path string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return fmt.Errorf("download %s: %w", url, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("download %s: unexpected status %s", url, resp.Status)
	}

	tmp := path + ".part"
	out, err := f.FS.Create(tmp)
	if err != nil {
		return fmt.Errorf("create %s: %w", tmp, err)
	}
	pw := &progressWriter{
		name:  path,
		total: resp.ContentLength,
		every: f.LogEvery,
	}
	clock := f.Clock
	if clock == nil {
		clock = timeutil.RealClock{}
	}
	start := clock.Now()
	n, err := io.Copy(io.MultiWriter(out, pw), resp.Body)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		f.FS.Remove(tmp)
		return fmt.Errorf("download %s: %w", url, err)
	}
	if resp.ContentLength >= 0 && n != resp.ContentLength {
		f.FS.Remove(tmp)
		return fmt.Errorf("download %s: got %d of %d bytes", url, n, resp.ContentLength)
	}
	if err := f.FS.Rename(tmp, path); err != nil {
		f.FS.Remove(tmp)
		return fmt.Errorf("rename %s: %w", tmp, err)
	}
	monitoring.Logf("downloaded %s (%s) in %s", path, humanize.Bytes(uint64(n)), clock.Since(start).Round(time.Millisecond))
	return nil
}

type progressWriter struct {
	name  string
	total int64
	every int64
	done  int64
	next  int64
}

func (p *progressWriter) Write(b []byte) (int, error) {
	p.done += int64(len(b))
	if p.every > 0 && p.done >= p.next {
		p.next = p.done + p.every
		if p.total > 0 {
			monitoring.Logf("%s: %s of %s", p.name, humanize.Bytes(uint64(p.done)), humanize.Bytes(uint64(p.total)))
		} else {
			monitoring.Logf("%s: %s", p.name, humanize.Bytes(uint64(p.done)))
		}
	}
	return len(b), nil
}
