package extract

import (
	"archive/tar"
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/nyuv2/internal/acquire"
	"github.com/banshee-data/nyuv2/internal/config"
	"github.com/banshee-data/nyuv2/internal/dataset"
	"github.com/banshee-data/nyuv2/internal/fsutil"
	"github.com/banshee-data/nyuv2/internal/labels"
	"github.com/banshee-data/nyuv2/internal/manifest"
	"github.com/banshee-data/nyuv2/internal/materialize"
	"github.com/banshee-data/nyuv2/internal/monitoring"
	"github.com/banshee-data/nyuv2/internal/testutil"
)

func init() { monitoring.SetLogger(nil) }

var testShape = dataset.Shape{Samples: 3, Height: 2, Width: 2}

type env struct {
	dir string
	cfg *config.Config
	raw []uint16
}

func newEnv(t *testing.T) *env {
	t.Helper()
	dir := t.TempDir()
	in := filepath.Join(dir, "in")
	require.NoError(t, os.MkdirAll(in, 0755))

	mat := filepath.Join(in, "nyu_depth_v2_labeled.mat")
	require.NoError(t, os.WriteFile(mat, []byte("placeholder"), 0644))
	testutil.WriteSplits(t, filepath.Join(in, "splits.mat"), []int{1, 3}, []int{2})
	p40, p13 := testutil.WriteMappings(t, in, []int{1, 2, 3}, []int{1, 1, 2})

	cfg := &config.Config{
		MatPath:       config.String(mat),
		DataRoot:      config.String(filepath.Join(dir, "NYUv2")),
		SplitsPath:    config.String(filepath.Join(in, "splits.mat")),
		Mapping40Path: config.String(p40),
		Mapping13Path: config.String(p13),
		NormalZipPath: config.String(filepath.Join(in, "normals.zip")),
		ColoredRoot:   config.String(filepath.Join(dir, "colored")),
		TrainArchive:  config.String(filepath.Join(dir, "train_labels_40", "nyuv2_train_class40.tgz")),
		TestArchive:   config.String(filepath.Join(dir, "test_labels_40", "nyuv2_test_class40.tgz")),
		Workers:       config.Int(2),
		Shape:         &testShape,
		SkipDownload:  config.Bool(true),
	}
	return &env{dir: dir, cfg: cfg, raw: []uint16{0, 1, 2, 3, 3, 2, 1, 0, 1, 1, 1, 1}}
}

func (e *env) pipeline(t *testing.T) *Pipeline {
	t.Helper()
	p := New(e.cfg)
	p.Fetcher = &acquire.Fetcher{FS: fsutil.OSFileSystem{}}
	p.OpenSource = func(path string, shape dataset.Shape) (dataset.Source, error) {
		assert.Equal(t, e.cfg.GetMatPath(), path)
		n := shape.Samples * shape.Pixels()
		images := make([]uint8, n*dataset.Channels)
		depths := make([]float32, n)
		for i := range depths {
			depths[i] = 1.5
		}
		return dataset.NewMemorySource(shape, images, e.raw, depths)
	}
	return p
}

func archiveNames(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	zr, err := gzip.NewReader(bytes.NewReader(data))
	require.NoError(t, err)
	tr := tar.NewReader(zr)
	var names []string
	for {
		hdr, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		names = append(names, hdr.Name)
	}
	sort.Strings(names)
	return names
}

func TestRunScenario(t *testing.T) {
	e := newEnv(t)
	e.cfg.SaveColored = config.Bool(true)
	e.cfg.ManifestPath = config.String(filepath.Join(e.dir, "NYUv2", "manifest.db"))
	e.cfg.ReportPath = config.String(filepath.Join(e.dir, "NYUv2", "report.html"))

	var zbuf bytes.Buffer
	zw := zip.NewWriter(&zbuf)
	w, err := zw.Create("surfacenormal_metadata/all_normals.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("normals"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, os.WriteFile(e.cfg.GetNormalZipPath(), zbuf.Bytes(), 0644))

	sum, err := e.pipeline(t).Run(context.Background())
	require.NoError(t, err)

	root := e.cfg.GetDataRoot()
	for _, c := range materialize.Categories {
		assert.Equal(t, 3, sum.Written[c], "category %s", c)
		assert.Equal(t, []string{"00001.png", "00003.png"}, testutil.ListFiles(t, materialize.SplitDir(root, c, dataset.Train)), "%s train", c)
		assert.Equal(t, []string{"00002.png"}, testutil.ListFiles(t, materialize.SplitDir(root, c, dataset.Test)), "%s test", c)
	}
	assert.Len(t, testutil.ListFiles(t, filepath.Join(e.dir, "colored", "colored_13")), 3)

	assert.Equal(t, []string{"new_nyu_class40_0001.png", "new_nyu_class40_0003.png"}, archiveNames(t, e.cfg.GetTrainArchive()))
	assert.Equal(t, []string{"new_nyu_class40_0002.png"}, archiveNames(t, e.cfg.GetTestArchive()))
	require.Len(t, sum.Archives, 2)

	assert.Equal(t, 1, sum.Normals)
	data, err := os.ReadFile(filepath.Join(root, "normal", "surfacenormal_metadata", "all_normals.txt"))
	require.NoError(t, err)
	assert.Equal(t, "normals", string(data))
	assert.True(t, sum.SplitsCopy)
	assert.FileExists(t, filepath.Join(root, "splits.mat"))

	assert.FileExists(t, e.cfg.GetReportPath())
	assert.FileExists(t, filepath.Join(root, "report_class40.png"))
	assert.FileExists(t, filepath.Join(root, "report_class13.png"))

	seg13 := testutil.DecodePNG(t, filepath.Join(root, "seg13", "train", "00003.png"))
	r, _, _, _ := seg13.At(0, 0).RGBA()
	assert.Equal(t, uint32(0), r>>8, "raw 1 maps to 13-class 1, stored as 0")

	man, err := manifest.Open(e.cfg.GetManifestPath())
	require.NoError(t, err)
	defer man.Close()
	runs, err := man.Runs(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, sum.RunID, runs[0].ID)
	assert.Equal(t, manifest.StatusComplete, runs[0].Status)
	files, err := man.Files(context.Background(), sum.RunID)
	require.NoError(t, err)
	assert.Len(t, files, 12+9, "canonical plus colored seg40, seg13 and depth")
	archives, err := man.Archives(context.Background(), sum.RunID)
	require.NoError(t, err)
	assert.Len(t, archives, 2)
}

func TestRunIsIdempotent(t *testing.T) {
	e := newEnv(t)
	read := func() map[string][]byte {
		out := make(map[string][]byte)
		for _, c := range materialize.Categories {
			for _, split := range dataset.SplitNames {
				dir := materialize.SplitDir(e.cfg.GetDataRoot(), c, split)
				for _, name := range testutil.ListFiles(t, dir) {
					data, err := os.ReadFile(filepath.Join(dir, name))
					require.NoError(t, err)
					out[filepath.Join(dir, name)] = data
				}
			}
		}
		return out
	}

	_, err := e.pipeline(t).Run(context.Background())
	require.NoError(t, err)
	first := read()
	_, err = e.pipeline(t).Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, first, read())
	assert.Len(t, first, 12)
}

func TestRunMissingDataset(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, os.Remove(e.cfg.GetMatPath()))
	e.cfg.ManifestPath = config.String(filepath.Join(e.dir, "manifest.db"))

	_, err := e.pipeline(t).Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, acquire.ErrMissingInput))

	man, err := manifest.Open(e.cfg.GetManifestPath())
	require.NoError(t, err)
	defer man.Close()
	runs, err := man.Runs(context.Background())
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, manifest.StatusFailed, runs[0].Status)
}

func TestRunOutOfDomainLabel(t *testing.T) {
	e := newEnv(t)
	e.raw[5] = 9

	_, err := e.pipeline(t).Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.Is(err, labels.ErrOutOfDomain))
	_, statErr := os.Stat(e.cfg.GetTrainArchive())
	assert.True(t, os.IsNotExist(statErr), "no archives after a failed write")
}

func TestRunRejectsBadSplits(t *testing.T) {
	e := newEnv(t)
	testutil.WriteSplits(t, e.cfg.GetSplitsPath(), []int{1, 4}, []int{2})

	_, err := e.pipeline(t).Run(context.Background())
	assert.True(t, errors.Is(err, dataset.ErrSplit))
}

func TestRunSkipExtractOnlyPacks(t *testing.T) {
	e := newEnv(t)
	require.NoError(t, os.Remove(e.cfg.GetMatPath()))
	e.cfg.SkipExtract = config.Bool(true)
	e.cfg.ArchiveClasses = config.Int(13)

	root := e.cfg.GetDataRoot()
	for _, split := range dataset.SplitNames {
		dir := materialize.SplitDir(root, materialize.Seg13, split)
		require.NoError(t, os.MkdirAll(dir, 0755))
		require.NoError(t, os.WriteFile(filepath.Join(dir, "00007.png"), []byte(split), 0644))
	}

	p := e.pipeline(t)
	p.OpenSource = func(string, dataset.Shape) (dataset.Source, error) {
		t.Fatal("source must not be opened when extraction is skipped")
		return nil, nil
	}
	sum, err := p.Run(context.Background())
	require.NoError(t, err)
	assert.Empty(t, sum.Written)
	assert.Equal(t, []string{"new_nyu_class13_0007.png"}, archiveNames(t, e.cfg.GetTrainArchive()))
	assert.Equal(t, []string{"new_nyu_class13_0007.png"}, archiveNames(t, e.cfg.GetTestArchive()))
}

func TestRunReadsHDF5Dataset(t *testing.T) {
	e := newEnv(t)
	n := testShape.Samples * testShape.Pixels()
	arrays := testutil.NYUv2Arrays{
		Samples: testShape.Samples,
		Height:  testShape.Height,
		Width:   testShape.Width,
		Images:  make([]uint8, n*dataset.Channels),
		Labels:  e.raw,
		Depths:  make([]float32, n),
	}
	for i := range arrays.Depths {
		arrays.Depths[i] = 1.5
	}
	// Sample 2, pixel (x=1, y=0).
	copy(arrays.Images[(testShape.Pixels()+1)*dataset.Channels:], []uint8{10, 20, 30})
	testutil.WriteHDF5(t, e.cfg.GetMatPath(), arrays)

	p := New(e.cfg)
	p.Fetcher = &acquire.Fetcher{FS: fsutil.OSFileSystem{}}
	sum, err := p.Run(context.Background())
	require.NoError(t, err)
	for _, c := range materialize.Categories {
		assert.Equal(t, 3, sum.Written[c], "category %s", c)
	}

	root := e.cfg.GetDataRoot()
	seg40 := testutil.DecodePNG(t, filepath.Join(root, "seg40", "train", "00001.png"))
	gray := func(x, y int) uint8 {
		v, _, _, _ := seg40.At(x, y).RGBA()
		return uint8(v >> 8)
	}
	assert.Equal(t, []uint8{255, 0, 1, 2}, []uint8{gray(0, 0), gray(1, 0), gray(0, 1), gray(1, 1)})

	img := testutil.DecodePNG(t, filepath.Join(root, "image", "test", "00002.png"))
	r, g, b, _ := img.At(1, 0).RGBA()
	assert.Equal(t, []uint32{10, 20, 30}, []uint32{r >> 8, g >> 8, b >> 8})

	depth := testutil.DecodePNG(t, filepath.Join(root, "depth", "train", "00003.png"))
	d, _, _, _ := depth.At(1, 1).RGBA()
	assert.Equal(t, uint32(1500), d)

	assert.Equal(t, []string{"new_nyu_class40_0001.png", "new_nyu_class40_0003.png"}, archiveNames(t, e.cfg.GetTrainArchive()))
}
