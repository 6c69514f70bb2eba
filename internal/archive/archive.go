// Package archive packs a written label split directory into a single
// gzip-compressed tar with the entry naming of the published label archives.
package archive

import (
	"archive/tar"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/banshee-data/nyuv2/internal/fsutil"
	"github.com/banshee-data/nyuv2/internal/monitoring"
)

// imageExts are the extensions packed; anything else in the directory is
// skipped.
var imageExts = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".gif":  true,
	".bmp":  true,
	".tiff": true,
}

// trimLen is the length of a four-digit sample name such as "0000.png".
// Longer names lose their first character so five-digit indices are
// stored with four digits.
const trimLen = len("0000.png")

// EntryName returns the archive entry name for a file in a split directory.
func EntryName(filename string, classes int) string {
	if len(filename) > trimLen {
		filename = filename[1:]
	}
	return fmt.Sprintf("new_nyu_class%d_%s", classes, filename)
}

// IsImage reports whether name has one of the packed extensions,
// ignoring case.
func IsImage(name string) bool {
	return imageExts[strings.ToLower(filepath.Ext(name))]
}

// Entry is one packed file.
type Entry struct {
	Name   string
	Source string
	Size   int64
}

// Summary describes a written archive.
type Summary struct {
	Path    string
	Entries []Entry
	Bytes   int64
}

// Packager writes archives through a FileSystem.
type Packager struct {
	FS fsutil.FileSystem
}

// NewPackager returns a Packager on the OS filesystem.
func NewPackager() *Packager {
	return &Packager{FS: fsutil.OSFileSystem{}}
}

// Pack writes every image file directly inside dir, in name order, to a new
// gzip tar at archivePath. The archive is assembled beside archivePath and
// renamed into place once complete.
func (p *Packager) Pack(dir, archivePath string, classes int) (Summary, error) {
	entries, err := p.FS.ReadDir(dir)
	if err != nil {
		return Summary{}, fmt.Errorf("list %s: %w", dir, err)
	}
	if err := p.FS.MkdirAll(filepath.Dir(archivePath), 0755); err != nil {
		return Summary{}, fmt.Errorf("create %s: %w", filepath.Dir(archivePath), err)
	}

	tmp := archivePath + ".part"
	out, err := p.FS.Create(tmp)
	if err != nil {
		return Summary{}, fmt.Errorf("create %s: %w", tmp, err)
	}
	cw := &countingWriter{w: out}
	zw := gzip.NewWriter(cw)
	tw := tar.NewWriter(zw)

	sum := Summary{Path: archivePath}
	fail := func(err error) (Summary, error) {
		out.Close()
		p.FS.Remove(tmp)
		return Summary{}, err
	}

	for _, e := range entries {
		if !e.Type().IsRegular() || !IsImage(e.Name()) {
			continue
		}
		src := filepath.Join(dir, e.Name())
		entry, err := p.add(tw, src, EntryName(e.Name(), classes))
		if err != nil {
			return fail(err)
		}
		sum.Entries = append(sum.Entries, entry)
	}

	if err := tw.Close(); err != nil {
		return fail(fmt.Errorf("finish tar %s: %w", archivePath, err))
	}
	if err := zw.Close(); err != nil {
		return fail(fmt.Errorf("finish gzip %s: %w", archivePath, err))
	}
	if err := out.Close(); err != nil {
		p.FS.Remove(tmp)
		return Summary{}, fmt.Errorf("close %s: %w", tmp, err)
	}
	if err := p.FS.Rename(tmp, archivePath); err != nil {
		p.FS.Remove(tmp)
		return Summary{}, fmt.Errorf("rename %s: %w", tmp, err)
	}
	sum.Bytes = cw.n

	monitoring.Logf("archive: packed %d files from %s into %s", len(sum.Entries), dir, archivePath)
	return sum, nil
}

func (p *Packager) add(tw *tar.Writer, src, name string) (Entry, error) {
	f, err := p.FS.Open(src)
	if err != nil {
		return Entry{}, fmt.Errorf("open %s: %w", src, err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Entry{}, fmt.Errorf("stat %s: %w", src, err)
	}
	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return Entry{}, fmt.Errorf("header %s: %w", src, err)
	}
	hdr.Name = name
	if err := tw.WriteHeader(hdr); err != nil {
		return Entry{}, fmt.Errorf("write header %s: %w", name, err)
	}
	n, err := io.Copy(tw, f)
	if err != nil {
		return Entry{}, fmt.Errorf("write %s: %w", name, err)
	}
	return Entry{Name: name, Source: src, Size: n}, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(b []byte) (int, error) {
	n, err := c.w.Write(b)
	c.n += int64(n)
	return n, err
}
