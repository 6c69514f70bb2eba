package monitoring

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
)

// Progress counts files and bytes written by a stage. It is safe for
// concurrent use by worker goroutines.
type Progress struct {
	name  string
	total int64
	every int64
	start time.Time

	files atomic.Int64
	bytes atomic.Int64

	mu       sync.Mutex
	lastLog  int64
	finished bool
}

// NewProgress starts tracking a stage expected to write total files. A line
// is logged roughly every `every` files; zero disables intermediate lines.
func NewProgress(name string, total, every int) *Progress {
	return &Progress{name: name, total: int64(total), every: int64(every), start: time.Now()}
}

// Add records one written file of n bytes.
func (p *Progress) Add(n int64) {
	files := p.files.Add(1)
	p.bytes.Add(n)
	if p.every <= 0 || files%p.every != 0 {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if files <= p.lastLog {
		return
	}
	p.lastLog = files
	Logf("%s: %d/%d files, %s", p.name, files, p.total, humanize.Bytes(uint64(p.bytes.Load())))
}

// Files returns the number of files recorded so far.
func (p *Progress) Files() int64 { return p.files.Load() }

// Bytes returns the number of bytes recorded so far.
func (p *Progress) Bytes() int64 { return p.bytes.Load() }

// Done logs the stage summary once.
func (p *Progress) Done() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.finished {
		return
	}
	p.finished = true
	Logf("%s: wrote %d files (%s) in %s", p.name, p.files.Load(),
		humanize.Bytes(uint64(p.bytes.Load())), time.Since(p.start).Round(time.Millisecond))
}
