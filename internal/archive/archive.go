// Package archive handles the ZIP round trip: unpacking the source archive
// into a scratch directory, enumerating its usable members, and repacking the
// staged results into a flat output archive.
package archive

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/Hk-V1/consignee-renamer/constants"
	"github.com/Hk-V1/consignee-renamer/internal/entity"
)

// ScanStats aggregates one enumeration pass.
type ScanStats struct {
	Scanned  int `json:"scanned"`  // walk entries visited
	Eligible int `json:"eligible"` // files kept for processing
	Hidden   int `json:"hidden"`   // dot-prefixed files and directories skipped
	Metadata int `json:"metadata"` // archive metadata directories skipped
}

// Unpack extracts src into dest. Member paths are confined to dest; an entry
// that would escape fails the whole unpack. Returns the number of files
// written.
func Unpack(src, dest string) (int, error) {
	r, err := zip.OpenReader(src)
	if err != nil {
		return 0, fmt.Errorf("open archive: %w", err)
	}
	defer r.Close()

	written := 0
	for _, f := range r.File {
		target, err := confine(dest, f.Name)
		if err != nil {
			return written, err
		}
		if f.FileInfo().IsDir() {
			if err := os.MkdirAll(target, 0o755); err != nil {
				return written, fmt.Errorf("create dir %q: %w", f.Name, err)
			}
			continue
		}
		if err := extractFile(f, target); err != nil {
			return written, err
		}
		written++
	}
	return written, nil
}

func confine(dest, name string) (string, error) {
	target := filepath.Join(dest, filepath.FromSlash(name))
	base := filepath.Clean(dest) + string(os.PathSeparator)
	if !strings.HasPrefix(target, base) {
		return "", fmt.Errorf("archive member %q escapes extraction dir", name)
	}
	return target, nil
}

func extractFile(f *zip.File, target string) error {
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return fmt.Errorf("create dir for %q: %w", f.Name, err)
	}
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("open member %q: %w", f.Name, err)
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return fmt.Errorf("create %q: %w", f.Name, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, rc); err != nil {
		return fmt.Errorf("write %q: %w", f.Name, err)
	}
	return nil
}

// Enumerate walks the unpacked tree in lexical order and lists the files the
// run will process. Hidden files and metadata directories are skipped, not
// errors. Entry indexes follow walk order; this is the order every later
// stage sees.
func Enumerate(root string) ([]entity.SourceEntry, ScanStats, error) {
	var entries []entity.SourceEntry
	var stats ScanStats

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if path == root {
			return nil
		}
		stats.Scanned++

		name := d.Name()
		if d.IsDir() {
			if name == constants.MetadataDirName {
				stats.Metadata++
				return filepath.SkipDir
			}
			if constants.IsHidden(name) {
				stats.Hidden++
				return filepath.SkipDir
			}
			return nil
		}
		if constants.IsHidden(name) {
			stats.Hidden++
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		info, err := d.Info()
		if err != nil {
			return err
		}

		entries = append(entries, entity.SourceEntry{
			Index:    len(entries),
			Name:     name,
			RelPath:  filepath.ToSlash(rel),
			Ext:      constants.NormalizeExt(filepath.Ext(name)),
			Type:     constants.TypeForName(name),
			FileSize: info.Size(),
		})
		stats.Eligible++
		return nil
	})
	if err != nil {
		return nil, stats, fmt.Errorf("walk: %w", err)
	}
	return entries, stats, nil
}

// Pack writes every file in dir (flat, lexical order) into a deflate ZIP on
// w. Returns the number of members written.
func Pack(w io.Writer, dir string) (int, error) {
	items, err := os.ReadDir(dir)
	if err != nil {
		return 0, fmt.Errorf("read staging dir: %w", err)
	}

	zw := zip.NewWriter(w)
	written := 0
	for _, item := range items {
		if item.IsDir() {
			continue
		}
		if err := packFile(zw, dir, item.Name()); err != nil {
			return written, err
		}
		written++
	}
	if err := zw.Close(); err != nil {
		return written, fmt.Errorf("finalize archive: %w", err)
	}
	return written, nil
}

func packFile(zw *zip.Writer, dir, name string) error {
	in, err := os.Open(filepath.Join(dir, name))
	if err != nil {
		return fmt.Errorf("open staged %q: %w", name, err)
	}
	defer in.Close()

	header := &zip.FileHeader{Name: name, Method: zip.Deflate}
	out, err := zw.CreateHeader(header)
	if err != nil {
		return fmt.Errorf("create member %q: %w", name, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("write member %q: %w", name, err)
	}
	return nil
}

// PackToFile writes the output archive to path via Pack.
func PackToFile(path, dir string) (int, error) {
	out, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create output archive: %w", err)
	}
	n, err := Pack(out, dir)
	if cerr := out.Close(); err == nil && cerr != nil {
		err = fmt.Errorf("close output archive: %w", cerr)
	}
	return n, err
}
