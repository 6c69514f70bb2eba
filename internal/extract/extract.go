// Package extract runs the whole conversion: acquire inputs, materialize
// every category, then pack the label archives once all writes finished.
package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/banshee-data/nyuv2/internal/acquire"
	"github.com/banshee-data/nyuv2/internal/archive"
	"github.com/banshee-data/nyuv2/internal/config"
	"github.com/banshee-data/nyuv2/internal/dataset"
	"github.com/banshee-data/nyuv2/internal/fsutil"
	"github.com/banshee-data/nyuv2/internal/labels"
	"github.com/banshee-data/nyuv2/internal/manifest"
	"github.com/banshee-data/nyuv2/internal/materialize"
	"github.com/banshee-data/nyuv2/internal/monitoring"
	"github.com/banshee-data/nyuv2/internal/report"
	"github.com/banshee-data/nyuv2/internal/version"
)

// SourceOpener opens the raw sample collection.
type SourceOpener func(path string, shape dataset.Shape) (dataset.Source, error)

// OpenHDF5 is the default SourceOpener.
func OpenHDF5(path string, shape dataset.Shape) (dataset.Source, error) {
	return dataset.OpenHDF5(path, shape)
}

// Pipeline wires the stages together from a Config.
type Pipeline struct {
	Config     *config.Config
	FS         fsutil.FileSystem
	Fetcher    *acquire.Fetcher
	OpenSource SourceOpener
}

// New returns a pipeline on the OS filesystem reading the HDF5 dataset.
func New(cfg *config.Config) *Pipeline {
	return &Pipeline{
		Config:     cfg,
		FS:         fsutil.OSFileSystem{},
		Fetcher:    acquire.NewFetcher(),
		OpenSource: OpenHDF5,
	}
}

// Summary reports what a run produced.
type Summary struct {
	RunID      string
	Written    map[materialize.Category]int
	Archives   []archive.Summary
	Normals    int
	SplitsCopy bool
}

// Run executes the pipeline. Stages run strictly in order; archives are
// only built after every category has been fully written.
func (p *Pipeline) Run(ctx context.Context) (sum Summary, err error) {
	cfg := p.Config
	sum.Written = make(map[materialize.Category]int)

	var man *manifest.Manifest
	if path := cfg.GetManifestPath(); path != "" {
		if err := p.FS.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return sum, fmt.Errorf("create %s: %w", filepath.Dir(path), err)
		}
		man, err = manifest.Open(path)
		if err != nil {
			return sum, err
		}
		defer man.Close()
		cfgJSON, jerr := json.Marshal(cfg)
		if jerr != nil {
			return sum, fmt.Errorf("encode config: %w", jerr)
		}
		sum.RunID, err = man.BeginRun(ctx, version.Version, cfgJSON)
		if err != nil {
			return sum, err
		}
		defer func() {
			if ferr := man.FinishRun(context.WithoutCancel(ctx), sum.RunID, err); ferr != nil && err == nil {
				err = ferr
			}
		}()
	}

	if !cfg.GetSkipExtract() {
		if err := p.extract(ctx, man, &sum); err != nil {
			return sum, err
		}
	}
	if err := p.pack(ctx, man, &sum); err != nil {
		return sum, err
	}
	return sum, nil
}

func (p *Pipeline) extract(ctx context.Context, man *manifest.Manifest, sum *Summary) error {
	cfg := p.Config
	download := !cfg.GetSkipDownload()

	if _, err := p.Fetcher.Ensure(ctx, cfg.GetMatPath(), cfg.GetDatasetURL(), download); err != nil {
		return err
	}
	_, err := p.Fetcher.Ensure(ctx, cfg.GetNormalZipPath(), cfg.GetNormalsURL(), download)
	if err != nil && !errors.Is(err, acquire.ErrMissingInput) {
		return err
	}

	splits, err := dataset.LoadSplits(cfg.GetSplitsPath())
	if err != nil {
		return fmt.Errorf("load splits: %w", err)
	}
	remapper, err := dataset.LoadMappings(cfg.GetMapping40Path(), cfg.GetMapping13Path())
	if err != nil {
		return fmt.Errorf("load class mappings: %w", err)
	}
	shape := cfg.GetShape()
	if err := splits.Validate(shape.Samples); err != nil {
		return err
	}

	src, err := p.OpenSource(cfg.GetMatPath(), shape)
	if err != nil {
		return err
	}
	defer src.Close()
	monitoring.Logf("extracting %s: %d train, %d test", shape, len(splits.Train), len(splits.Test))

	root := cfg.GetDataRoot()
	hist := report.NewHistogram()
	m := &materialize.Materializer{
		FS:            p.FS,
		Root:          root,
		ColoredRoot:   cfg.GetColoredRoot(),
		SaveColored:   cfg.GetSaveColored(),
		Workers:       cfg.GetWorkers(),
		ProgressEvery: cfg.GetProgressEvery(),
	}
	if cfg.GetReportPath() != "" {
		m.Observe = hist.Observe
	}

	compiled := remapper.Compile()
	frames := map[materialize.Category]materialize.Frames{
		materialize.Seg40: materialize.NewLabelFrames(src, compiled, labels.Classes40),
		materialize.Seg13: materialize.NewLabelFrames(src, compiled, labels.Classes13),
		materialize.Depth: materialize.DepthFrames{Source: src},
		materialize.Image: materialize.ImageFrames{Source: src},
	}
	for _, c := range materialize.Categories {
		res, err := m.Write(ctx, c, frames[c], splits)
		if err != nil {
			return fmt.Errorf("write %s: %w", c, err)
		}
		sum.Written[c] = res.Count(dataset.Train) + res.Count(dataset.Test)
		if man != nil {
			if err := man.RecordFiles(ctx, sum.RunID, manifestFiles(res.Files)); err != nil {
				return err
			}
		}
	}

	if zipPath := cfg.GetNormalZipPath(); p.FS.Exists(zipPath) {
		sum.Normals, err = acquire.ExtractZip(p.FS, zipPath, filepath.Join(root, "normal"))
		if err != nil {
			return err
		}
		monitoring.Logf("extracted %d surface normal files", sum.Normals)
	} else {
		monitoring.Logf("no surface normal metadata at %s, skipping", zipPath)
	}
	sum.SplitsCopy, err = acquire.CopyIfAbsent(p.FS, cfg.GetSplitsPath(), filepath.Join(root, "splits.mat"))
	if err != nil {
		return err
	}

	if path := cfg.GetReportPath(); path != "" {
		if err := p.writeReport(hist, path); err != nil {
			return err
		}
	}
	return nil
}

func (p *Pipeline) pack(ctx context.Context, man *manifest.Manifest, sum *Summary) error {
	cfg := p.Config
	classes := cfg.GetArchiveClasses()
	category := materialize.Seg40
	if classes == int(labels.Classes13) {
		category = materialize.Seg13
	}

	packager := &archive.Packager{FS: p.FS}
	archives := cfg.Archives()
	for _, split := range dataset.SplitNames {
		if err := ctx.Err(); err != nil {
			return err
		}
		dir := materialize.SplitDir(cfg.GetDataRoot(), category, split)
		a, err := packager.Pack(dir, archives[split], classes)
		if err != nil {
			return fmt.Errorf("pack %s: %w", split, err)
		}
		sum.Archives = append(sum.Archives, a)
		if man != nil {
			rec := manifest.Archive{Split: string(split), Path: a.Path, Entries: len(a.Entries), Bytes: a.Bytes}
			if err := man.RecordArchive(ctx, sum.RunID, rec); err != nil {
				return err
			}
		}
	}
	return nil
}

func (p *Pipeline) writeReport(hist *report.Histogram, path string) error {
	if err := p.FS.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("create %s: %w", filepath.Dir(path), err)
	}
	w, err := p.FS.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	err = hist.WriteHTML(w, "NYUv2 class distribution")
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}

	// Static plots go beside the HTML on the OS filesystem.
	if _, ok := p.FS.(fsutil.OSFileSystem); ok {
		base := strings.TrimSuffix(path, filepath.Ext(path))
		for _, tax := range report.Taxonomies {
			if err := hist.SavePlot(tax, fmt.Sprintf("%s_%s.png", base, tax)); err != nil {
				return err
			}
		}
	}
	monitoring.Logf("wrote class distribution report %s", path)
	return nil
}

func manifestFiles(files []materialize.File) []manifest.File {
	out := make([]manifest.File, len(files))
	for i, f := range files {
		out[i] = manifest.File{
			Category: string(f.Category),
			Split:    string(f.Split),
			Index:    f.Index,
			Path:     f.Path,
			Bytes:    f.Bytes,
			Colored:  f.Colored,
		}
	}
	return out
}
