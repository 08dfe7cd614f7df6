package downloader

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/caedis/fezmod-installer/internal/failure"
	"github.com/caedis/fezmod-installer/internal/logging"
	"github.com/caedis/fezmod-installer/internal/report"
)

const (
	// DefaultUserAgent is the User-Agent header sent with requests.
	DefaultUserAgent = "FEZMod Installer"
	// ChunkSize bounds each read so progress can be reported continuously.
	ChunkSize = 2048
	// SampleWindow is how often throughput is recomputed.
	SampleWindow = 100 * time.Millisecond
	// ProgressMax is the largest value a progress counter can hold.
	ProgressMax = math.MaxInt32
	// maxPrealloc caps the buffer reserved up front from a server-announced size.
	maxPrealloc = 64 << 20
)

// Downloader fetches archives into memory.
type Downloader struct {
	client    *http.Client
	userAgent string
	now       func() time.Time
}

// Option configures a Downloader.
type Option func(*Downloader)

// WithClient replaces the HTTP client. No timeout is set by default; the
// transport's own defaults apply.
func WithClient(c *http.Client) Option {
	return func(d *Downloader) { d.client = c }
}

// WithClock replaces time.Now for throughput sampling.
func WithClock(now func() time.Time) Option {
	return func(d *Downloader) { d.now = now }
}

// New creates a downloader.
func New(opts ...Option) *Downloader {
	d := &Downloader{
		client:    http.DefaultClient,
		userAgent: DefaultUserAgent,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Fetch downloads url into memory, reporting progress and throughput to r.
// On any failure the partial data is discarded and a failure.Network error
// is returned.
func (d *Downloader) Fetch(ctx context.Context, url string, r report.Reporter) ([]byte, error) {
	if r == nil {
		r = report.Discard
	}
	r.Logf("Downloading %s...", url)
	r.InitProgress("Starting download", 1)
	logging.Debugf("Verbose: download start url=%s\n", url)

	start := d.now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, failure.Wrap(failure.Network, "creating request", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return nil, failure.Wrap(failure.Network, "downloading "+url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, failure.New(failure.Network, "downloading %s: HTTP %d", url, resp.StatusCode)
	}

	total := resp.ContentLength
	if total < 0 {
		logging.Debugf("Verbose: no content length on stream, probing url=%s\n", url)
		total, err = d.ContentLength(ctx, url)
		if err != nil {
			return nil, err
		}
	}

	data, err := d.read(resp.Body, total, r)
	if err != nil {
		return nil, failure.Wrap(failure.Network, "reading "+url, err)
	}

	r.EndProgress("Download complete")
	elapsed := d.now().Sub(start).Seconds()
	r.Logf("Download complete, %s in %.2f s.", humanize.IBytes(uint64(len(data))), elapsed)
	return data, nil
}

// ContentLength asks the server for the size of url without fetching the body.
// It returns -1 when the server does not know the size either.
func (d *Downloader) ContentLength(ctx context.Context, url string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, url, nil)
	if err != nil {
		return 0, failure.Wrap(failure.Network, "creating probe request", err)
	}
	req.Header.Set("User-Agent", d.userAgent)

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, failure.Wrap(failure.Network, "probing "+url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, failure.New(failure.Network, "probing %s: HTTP %d", url, resp.StatusCode)
	}
	return resp.ContentLength, nil
}

func (d *Downloader) read(body io.Reader, total int64, r report.Reporter) ([]byte, error) {
	scale := ScaleFactor(total)
	progressSize := total / scale
	if total <= 0 {
		progressSize = 0
	}
	r.InitProgress("Downloading", int(progressSize))

	var data []byte
	if total > 0 {
		data = make([]byte, 0, min(total, maxPrealloc))
	}
	buf := make([]byte, ChunkSize)
	meter := NewThroughput(d.now())

	var pos int64
	for {
		n, err := body.Read(buf)
		if n > 0 {
			data = append(data, buf[:n]...)
			pos += int64(n)
			if total >= 0 && pos > total {
				return nil, fmt.Errorf("server sent more than the announced %d bytes", total)
			}
			speed := meter.Add(n, d.now())
			r.SetProgress(progressText(pos/scale, progressSize, speed), int(pos/scale))
		}
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
	}

	if total >= 0 && pos != total {
		return nil, fmt.Errorf("short read: got %d of %d bytes", pos, total)
	}
	return data, nil
}

func progressText(scaledPos, progressSize int64, kibps int) string {
	percent := 0
	if progressSize > 0 {
		percent = int(math.Round(100 * float64(scaledPos) / float64(progressSize)))
	}
	return fmt.Sprintf("Downloading - %d%%, %d KiB/s", percent, kibps)
}

// ScaleFactor returns the smallest power of ten that brings total into the
// range of a progress counter. Both position and total are divided by it.
func ScaleFactor(total int64) int64 {
	scale := int64(1)
	for total/scale > ProgressMax {
		scale *= 10
	}
	return scale
}

// Throughput tracks download speed over a rolling SampleWindow.
type Throughput struct {
	last  time.Time
	bytes int
	kibps int
}

// NewThroughput starts a meter at start.
func NewThroughput(start time.Time) *Throughput {
	return &Throughput{last: start}
}

// Add records n received bytes at now and returns the current speed in KiB/s.
// The speed only changes once more than SampleWindow has elapsed since the
// previous sample.
func (t *Throughput) Add(n int, now time.Time) int {
	t.bytes += n
	elapsed := now.Sub(t.last)
	if elapsed > SampleWindow {
		t.kibps = int(float64(t.bytes) / 1024 / elapsed.Seconds())
		t.bytes = 0
		t.last = now
	}
	return t.kibps
}
