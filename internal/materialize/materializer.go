package materialize

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"path/filepath"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/nyuv2/internal/dataset"
	"github.com/banshee-data/nyuv2/internal/fsutil"
	"github.com/banshee-data/nyuv2/internal/monitoring"
)

// File describes one written PNG.
type File struct {
	Category Category
	Split    dataset.Split
	Index    int
	Path     string
	Bytes    int64
	Colored  bool
}

// Result lists the files a Write produced, canonical files first, ordered
// by split then index.
type Result struct {
	Category Category
	Files    []File
}

// Count returns the number of canonical files written for a split.
func (r Result) Count(split dataset.Split) int {
	n := 0
	for _, f := range r.Files {
		if f.Split == split && !f.Colored {
			n++
		}
	}
	return n
}

// ObserveFunc is called with every canonical frame after it is written.
// It runs on worker goroutines.
type ObserveFunc func(c Category, split dataset.Split, index int, frame image.Image)

// Materializer writes <Root>/<category>/<split>/%05d.png for every sample
// listed in a split.
type Materializer struct {
	FS            fsutil.FileSystem
	Root          string
	ColoredRoot   string
	SaveColored   bool
	Workers       int
	ProgressEvery int
	Observe       ObserveFunc

	encoder png.Encoder
	once    sync.Once
}

// New returns a Materializer writing under root on the OS filesystem.
func New(root string, workers int) *Materializer {
	return &Materializer{FS: fsutil.OSFileSystem{}, Root: root, ColoredRoot: ".", Workers: workers}
}

// Write renders every listed sample of both splits and returns once all
// workers have finished. The first failure cancels the remaining work.
func (m *Materializer) Write(ctx context.Context, c Category, frames Frames, splits dataset.Splits) (Result, error) {
	m.once.Do(func() { m.encoder.BufferPool = &bufferPool{} })

	colorizer, _ := frames.(Colorizer)
	coloredDir := ""
	if m.SaveColored && colorizer != nil && c.ColoredDir() != "" {
		coloredDir = filepath.Join(m.ColoredRoot, c.ColoredDir())
		if err := m.FS.MkdirAll(coloredDir, 0755); err != nil {
			return Result{}, fmt.Errorf("create %s: %w", coloredDir, err)
		}
	}
	for _, split := range dataset.SplitNames {
		dir := SplitDir(m.Root, c, split)
		if err := m.FS.MkdirAll(dir, 0755); err != nil {
			return Result{}, fmt.Errorf("create %s: %w", dir, err)
		}
	}

	progress := monitoring.NewProgress(string(c), splits.Len(), m.ProgressEvery)
	var (
		mu    sync.Mutex
		files = make([]File, 0, splits.Len())
	)
	record := func(f File) {
		mu.Lock()
		files = append(files, f)
		mu.Unlock()
		if !f.Colored {
			progress.Add(f.Bytes)
		}
	}

	g, gctx := errgroup.WithContext(ctx)
	if m.Workers > 0 {
		g.SetLimit(m.Workers)
	}
	for _, split := range dataset.SplitNames {
		dir := SplitDir(m.Root, c, split)
		for _, index := range splits.Indices(split) {
			if gctx.Err() != nil {
				break
			}
			g.Go(func() error {
				if err := gctx.Err(); err != nil {
					return err
				}
				frame, err := frames.Frame(index - 1)
				if err != nil {
					return fmt.Errorf("%s %s %d: %w", c, split, index, err)
				}
				path := filepath.Join(dir, FileName(index))
				n, err := m.writePNG(path, frame)
				if err != nil {
					return err
				}
				record(File{Category: c, Split: split, Index: index, Path: path, Bytes: n})
				if m.Observe != nil {
					m.Observe(c, split, index, frame)
				}

				if coloredDir == "" {
					return nil
				}
				colored, err := colorizer.Colorize(frame)
				if err != nil {
					return fmt.Errorf("%s %s %d: %w", c, split, index, err)
				}
				cpath := filepath.Join(coloredDir, FileName(index))
				n, err = m.writePNG(cpath, colored)
				if err != nil {
					return err
				}
				record(File{Category: c, Split: split, Index: index, Path: cpath, Bytes: n, Colored: true})
				return nil
			})
		}
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	progress.Done()

	order := map[dataset.Split]int{dataset.Train: 0, dataset.Test: 1}
	sort.Slice(files, func(i, j int) bool {
		a, b := files[i], files[j]
		if a.Colored != b.Colored {
			return !a.Colored
		}
		if a.Split != b.Split {
			return order[a.Split] < order[b.Split]
		}
		return a.Index < b.Index
	})
	return Result{Category: c, Files: files}, nil
}

func (m *Materializer) writePNG(path string, img image.Image) (int64, error) {
	var buf bytes.Buffer
	if err := m.encoder.Encode(&buf, img); err != nil {
		return 0, fmt.Errorf("encode %s: %w", path, err)
	}
	w, err := m.FS.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	n, err := w.Write(buf.Bytes())
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return 0, fmt.Errorf("write %s: %w", path, err)
	}
	return int64(n), nil
}

// bufferPool shares PNG encoder state between workers.
type bufferPool struct {
	pool sync.Pool
}

func (p *bufferPool) Get() *png.EncoderBuffer {
	b, _ := p.pool.Get().(*png.EncoderBuffer)
	return b
}

func (p *bufferPool) Put(b *png.EncoderBuffer) { p.pool.Put(b) }
