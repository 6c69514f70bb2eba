package config

import (
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/nyuv2/internal/dataset"
)

func writeConfig(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestGetterDefaults(t *testing.T) {
	cfg := &Config{}

	assert.Equal(t, DefaultMatPath, cfg.GetMatPath())
	assert.Equal(t, "NYUv2", cfg.GetDataRoot())
	assert.Equal(t, "splits.mat", cfg.GetSplitsPath())
	assert.Equal(t, "classMapping40.mat", cfg.GetMapping40Path())
	assert.Equal(t, "class13Mapping.mat", cfg.GetMapping13Path())
	assert.Equal(t, "nyuv2_surfacenormal_metadata.zip", cfg.GetNormalZipPath())
	assert.Equal(t, ".", cfg.GetColoredRoot())
	assert.False(t, cfg.GetSaveColored())
	assert.False(t, cfg.GetSkipDownload())
	assert.False(t, cfg.GetSkipExtract())
	assert.Equal(t, 40, cfg.GetArchiveClasses())
	assert.Equal(t, runtime.NumCPU(), cfg.GetWorkers())
	assert.Equal(t, 100, cfg.GetProgressEvery())
	assert.Equal(t, dataset.NYUv2, cfg.GetShape())
	assert.Empty(t, cfg.GetManifestPath())
	assert.Empty(t, cfg.GetReportPath())
	assert.Equal(t, map[dataset.Split]string{
		dataset.Train: "train_labels_40/nyuv2_train_class40.tgz",
		dataset.Test:  "test_labels_40/nyuv2_test_class40.tgz",
	}, cfg.Archives())
}

func TestLoadExampleConfigFile(t *testing.T) {
	cfg, err := Load("../../config/nyuv2.example.json")
	require.NoError(t, err)
	assert.True(t, cfg.GetSaveColored())
	assert.Equal(t, 8, cfg.GetWorkers())
	assert.Equal(t, 200, cfg.GetProgressEvery())
	assert.Equal(t, "NYUv2/manifest.db", cfg.GetManifestPath())
	assert.Equal(t, dataset.NYUv2, cfg.GetShape())
}

func TestLoadPartial(t *testing.T) {
	path := writeConfig(t, "partial.json", `{"data_root": "out", "shape": {"samples": 3, "height": 2, "width": 2}}`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "out", cfg.GetDataRoot())
	assert.Equal(t, dataset.Shape{Samples: 3, Height: 2, Width: 2}, cfg.GetShape())
	assert.Equal(t, DefaultMatPath, cfg.GetMatPath())
}

func TestLoadRejects(t *testing.T) {
	t.Run("non-json extension", func(t *testing.T) {
		_, err := Load(writeConfig(t, "cfg.yaml", "{}"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), ".json extension")
	})

	t.Run("missing", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "none.json"))
		assert.Error(t, err)
	})

	t.Run("large file", func(t *testing.T) {
		body := `{"data_root": "` + strings.Repeat("x", 1024*1024) + `"}`
		_, err := Load(writeConfig(t, "big.json", body))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "too large")
	})

	t.Run("bad json", func(t *testing.T) {
		_, err := Load(writeConfig(t, "bad.json", "{"))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "parse")
	})

	t.Run("invalid values", func(t *testing.T) {
		_, err := Load(writeConfig(t, "invalid.json", `{"workers": 0}`))
		assert.True(t, errors.Is(err, ErrInvalid))
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		ok   bool
	}{
		{"empty", Config{}, true},
		{"workers", Config{Workers: Int(4)}, true},
		{"zero workers", Config{Workers: Int(0)}, false},
		{"negative progress", Config{ProgressEvery: Int(-1)}, false},
		{"13-class archives", Config{ArchiveClasses: Int(13)}, true},
		{"unknown taxonomy", Config{ArchiveClasses: Int(20)}, false},
		{"bad shape", Config{Shape: &dataset.Shape{Samples: 1}}, false},
		{"empty data root", Config{DataRoot: String("")}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.True(t, errors.Is(err, ErrInvalid), "got %v", err)
			}
		})
	}
}

func TestMerge(t *testing.T) {
	base := &Config{DataRoot: String("file-root"), Workers: Int(2), SaveColored: Bool(true)}
	shape := dataset.Shape{Samples: 1, Height: 1, Width: 1}
	base.Merge(&Config{Workers: Int(6), SkipExtract: Bool(true), Shape: &shape})
	base.Merge(nil)

	assert.Equal(t, "file-root", base.GetDataRoot())
	assert.Equal(t, 6, base.GetWorkers())
	assert.True(t, base.GetSaveColored())
	assert.True(t, base.GetSkipExtract())
	assert.Equal(t, shape, base.GetShape())

	shape.Samples = 9
	assert.Equal(t, 1, base.GetShape().Samples, "merged shape must be a copy")
}
