// Package config holds the extraction run configuration. Every input and
// output path is explicit here; nothing is derived from globals.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/banshee-data/nyuv2/internal/dataset"
)

// ErrInvalid is returned by Validate.
var ErrInvalid = errors.New("invalid configuration")

// Default locations, matching the conventional filenames of the release.
const (
	DefaultMatPath       = "nyu_depth_v2_labeled.mat"
	DefaultDataRoot      = "NYUv2"
	DefaultSplitsPath    = "splits.mat"
	DefaultMapping40Path = "classMapping40.mat"
	DefaultMapping13Path = "class13Mapping.mat"
	DefaultNormalZipPath = "nyuv2_surfacenormal_metadata.zip"
	DefaultTrainArchive  = "train_labels_40/nyuv2_train_class40.tgz"
	DefaultTestArchive   = "test_labels_40/nyuv2_test_class40.tgz"
	DefaultDatasetURL    = "http://horatio.cs.nyu.edu/mit/silberman/nyu_depth_v2/nyu_depth_v2_labeled.mat"
	DefaultNormalsURL    = "https://dl.fbaipublicfiles.com/fair_self_supervision_benchmark/nyuv2_surfacenormal_metadata.zip"
	DefaultProgressEvery = 100
	DefaultArchiveClass  = 40
)

// Config is the run configuration. Fields left nil fall back to the
// defaults returned by the Get* methods, so partial files are safe.
type Config struct {
	MatPath       *string `json:"mat_path,omitempty"`
	DataRoot      *string `json:"data_root,omitempty"`
	SplitsPath    *string `json:"splits_path,omitempty"`
	Mapping40Path *string `json:"mapping40_path,omitempty"`
	Mapping13Path *string `json:"mapping13_path,omitempty"`
	NormalZipPath *string `json:"normal_zip_path,omitempty"`

	SaveColored *bool   `json:"save_colored,omitempty"`
	ColoredRoot *string `json:"colored_root,omitempty"`

	TrainArchive   *string `json:"train_archive,omitempty"`
	TestArchive    *string `json:"test_archive,omitempty"`
	ArchiveClasses *int    `json:"archive_classes,omitempty"`

	Workers       *int           `json:"workers,omitempty"`
	ProgressEvery *int           `json:"progress_every,omitempty"`
	Shape         *dataset.Shape `json:"shape,omitempty"`

	DatasetURL   *string `json:"dataset_url,omitempty"`
	NormalsURL   *string `json:"normals_url,omitempty"`
	SkipDownload *bool   `json:"skip_download,omitempty"`
	SkipExtract  *bool   `json:"skip_extract,omitempty"`

	ManifestPath *string `json:"manifest_path,omitempty"`
	ReportPath   *string `json:"report_path,omitempty"`
}

// Load reads a Config from a JSON file. The file must have a .json
// extension and be under 1 MB.
func Load(path string) (*Config, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	info, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if info.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", info.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the values that are set.
func (c *Config) Validate() error {
	if c.Workers != nil && *c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d: %w", *c.Workers, ErrInvalid)
	}
	if c.ProgressEvery != nil && *c.ProgressEvery < 0 {
		return fmt.Errorf("progress_every must not be negative, got %d: %w", *c.ProgressEvery, ErrInvalid)
	}
	if c.ArchiveClasses != nil && *c.ArchiveClasses != 40 && *c.ArchiveClasses != 13 {
		return fmt.Errorf("archive_classes must be 40 or 13, got %d: %w", *c.ArchiveClasses, ErrInvalid)
	}
	if c.Shape != nil {
		if err := c.Shape.Validate(); err != nil {
			return fmt.Errorf("shape: %v: %w", err, ErrInvalid)
		}
	}
	for name, p := range map[string]*string{
		"mat_path":  c.MatPath,
		"data_root": c.DataRoot,
	} {
		if p != nil && *p == "" {
			return fmt.Errorf("%s must not be empty: %w", name, ErrInvalid)
		}
	}
	return nil
}

// Merge copies every field set in o over c.
func (c *Config) Merge(o *Config) {
	if o == nil {
		return
	}
	mergeString(&c.MatPath, o.MatPath)
	mergeString(&c.DataRoot, o.DataRoot)
	mergeString(&c.SplitsPath, o.SplitsPath)
	mergeString(&c.Mapping40Path, o.Mapping40Path)
	mergeString(&c.Mapping13Path, o.Mapping13Path)
	mergeString(&c.NormalZipPath, o.NormalZipPath)
	mergeBool(&c.SaveColored, o.SaveColored)
	mergeString(&c.ColoredRoot, o.ColoredRoot)
	mergeString(&c.TrainArchive, o.TrainArchive)
	mergeString(&c.TestArchive, o.TestArchive)
	mergeInt(&c.ArchiveClasses, o.ArchiveClasses)
	mergeInt(&c.Workers, o.Workers)
	mergeInt(&c.ProgressEvery, o.ProgressEvery)
	if o.Shape != nil {
		s := *o.Shape
		c.Shape = &s
	}
	mergeString(&c.DatasetURL, o.DatasetURL)
	mergeString(&c.NormalsURL, o.NormalsURL)
	mergeBool(&c.SkipDownload, o.SkipDownload)
	mergeBool(&c.SkipExtract, o.SkipExtract)
	mergeString(&c.ManifestPath, o.ManifestPath)
	mergeString(&c.ReportPath, o.ReportPath)
}

func mergeString(dst **string, src *string) {
	if src != nil {
		v := *src
		*dst = &v
	}
}

func mergeBool(dst **bool, src *bool) {
	if src != nil {
		v := *src
		*dst = &v
	}
}

func mergeInt(dst **int, src *int) {
	if src != nil {
		v := *src
		*dst = &v
	}
}

func getString(p *string, def string) string {
	if p == nil || *p == "" {
		return def
	}
	return *p
}

func (c *Config) GetMatPath() string       { return getString(c.MatPath, DefaultMatPath) }
func (c *Config) GetDataRoot() string      { return getString(c.DataRoot, DefaultDataRoot) }
func (c *Config) GetSplitsPath() string    { return getString(c.SplitsPath, DefaultSplitsPath) }
func (c *Config) GetMapping40Path() string { return getString(c.Mapping40Path, DefaultMapping40Path) }
func (c *Config) GetMapping13Path() string { return getString(c.Mapping13Path, DefaultMapping13Path) }
func (c *Config) GetNormalZipPath() string { return getString(c.NormalZipPath, DefaultNormalZipPath) }
func (c *Config) GetTrainArchive() string  { return getString(c.TrainArchive, DefaultTrainArchive) }
func (c *Config) GetTestArchive() string   { return getString(c.TestArchive, DefaultTestArchive) }
func (c *Config) GetDatasetURL() string    { return getString(c.DatasetURL, DefaultDatasetURL) }
func (c *Config) GetNormalsURL() string    { return getString(c.NormalsURL, DefaultNormalsURL) }

// GetColoredRoot returns the directory holding the colored_* side trees,
// the working directory by default.
func (c *Config) GetColoredRoot() string { return getString(c.ColoredRoot, ".") }

// GetManifestPath returns the manifest database path; empty disables it.
func (c *Config) GetManifestPath() string { return getString(c.ManifestPath, "") }

// GetReportPath returns the HTML report path; empty disables it.
func (c *Config) GetReportPath() string { return getString(c.ReportPath, "") }

// GetSaveColored reports whether colorized side outputs are written.
func (c *Config) GetSaveColored() bool {
	if c.SaveColored == nil {
		return false // default
	}
	return *c.SaveColored
}

// GetSkipDownload reports whether missing inputs are left undownloaded.
func (c *Config) GetSkipDownload() bool {
	if c.SkipDownload == nil {
		return false // default
	}
	return *c.SkipDownload
}

// GetSkipExtract reports whether the run only rebuilds archives.
func (c *Config) GetSkipExtract() bool {
	if c.SkipExtract == nil {
		return false // default
	}
	return *c.SkipExtract
}

// GetArchiveClasses returns the taxonomy named in archive entries.
func (c *Config) GetArchiveClasses() int {
	if c.ArchiveClasses == nil {
		return DefaultArchiveClass
	}
	return *c.ArchiveClasses
}

// GetWorkers returns the writer pool size, one per CPU by default.
func (c *Config) GetWorkers() int {
	if c.Workers == nil || *c.Workers < 1 {
		return runtime.NumCPU()
	}
	return *c.Workers
}

// GetProgressEvery returns how many files pass between progress lines.
func (c *Config) GetProgressEvery() int {
	if c.ProgressEvery == nil {
		return DefaultProgressEvery
	}
	return *c.ProgressEvery
}

// GetShape returns the dataset shape, the published NYUv2 release by default.
func (c *Config) GetShape() dataset.Shape {
	if c.Shape == nil {
		return dataset.NYUv2
	}
	return *c.Shape
}

// Archives returns the archive path for each split.
func (c *Config) Archives() map[dataset.Split]string {
	return map[dataset.Split]string{
		dataset.Train: c.GetTrainArchive(),
		dataset.Test:  c.GetTestArchive(),
	}
}

// Helper functions to create pointers for flag overrides and tests.
func String(v string) *string { return &v }
func Bool(v bool) *bool       { return &v }
func Int(v int) *int          { return &v }
