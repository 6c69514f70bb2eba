package acquire

import (
	"bytes"
	"fmt"
	"io"
	"path/filepath"

	"github.com/klauspost/compress/zip"

	"github.com/banshee-data/nyuv2/internal/fsutil"
	"github.com/banshee-data/nyuv2/internal/security"
)

// ExtractZip unpacks every entry of the archive at zipPath below dest,
// verbatim. Both the archive and the output go through fsys. Entries that
// would land outside dest are rejected.
func ExtractZip(fsys fsutil.FileSystem, zipPath, dest string) (int, error) {
	zr, closeZip, err := openZip(fsys, zipPath)
	if err != nil {
		return 0, err
	}
	defer closeZip()

	if err := fsys.MkdirAll(dest, 0755); err != nil {
		return 0, fmt.Errorf("create %s: %w", dest, err)
	}
	files := 0
	for _, zf := range zr.File {
		target, err := security.JoinWithin(dest, zf.Name)
		if err != nil {
			return files, fmt.Errorf("%s: %w", zipPath, err)
		}
		if zf.FileInfo().IsDir() {
			if err := fsys.MkdirAll(target, 0755); err != nil {
				return files, fmt.Errorf("create %s: %w", target, err)
			}
			continue
		}
		if err := fsys.MkdirAll(filepath.Dir(target), 0755); err != nil {
			return files, fmt.Errorf("create %s: %w", filepath.Dir(target), err)
		}
		if err := extractFile(fsys, zf, target); err != nil {
			return files, err
		}
		files++
	}
	return files, nil
}

// openZip opens the archive through fsys. Files that cannot seek are read
// into memory first.
func openZip(fsys fsutil.FileSystem, zipPath string) (*zip.Reader, func() error, error) {
	f, err := fsys.Open(zipPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open %s: %w", zipPath, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("stat %s: %w", zipPath, err)
	}
	ra, ok := f.(io.ReaderAt)
	size := info.Size()
	if !ok {
		data, err := io.ReadAll(f)
		if err != nil {
			f.Close()
			return nil, nil, fmt.Errorf("read %s: %w", zipPath, err)
		}
		ra, size = bytes.NewReader(data), int64(len(data))
	}
	zr, err := zip.NewReader(ra, size)
	if err != nil {
		f.Close()
		return nil, nil, fmt.Errorf("open %s: %w", zipPath, err)
	}
	return zr, f.Close, nil
}

func extractFile(fsys fsutil.FileSystem, zf *zip.File, target string) error {
	rc, err := zf.Open()
	if err != nil {
		return fmt.Errorf("open entry %s: %w", zf.Name, err)
	}
	defer rc.Close()
	out, err := fsys.Create(target)
	if err != nil {
		return fmt.Errorf("create %s: %w", target, err)
	}
	_, err = io.Copy(out, rc)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("extract %s: %w", zf.Name, err)
	}
	return nil
}

// CopyIfAbsent copies src to dst unless dst already exists. Returns whether
// a copy was made.
func CopyIfAbsent(fsys fsutil.FileSystem, src, dst string) (bool, error) {
	if fsys.Exists(dst) {
		return false, nil
	}
	in, err := fsys.Open(src)
	if err != nil {
		return false, fmt.Errorf("open %s: %w", src, err)
	}
	defer in.Close()
	if err := fsys.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return false, fmt.Errorf("create %s: %w", filepath.Dir(dst), err)
	}
	out, err := fsys.Create(dst)
	if err != nil {
		return false, fmt.Errorf("create %s: %w", dst, err)
	}
	_, err = io.Copy(out, in)
	if cerr := out.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return false, fmt.Errorf("copy %s to %s: %w", src, dst, err)
	}
	return true, nil
}
