// Package scratch manages the temporary files a download is staged in
// before it is uploaded. Every file gets a fresh uuid-based name and is
// created exclusively, so concurrent downloads never share a path.
package scratch

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const Prefix = "tgytdl-"

// sidecar suffixes yt-dlp may leave next to its output file
var sidecarSuffixes = []string{".part", ".ytdl"}

type Dir struct {
	path string
}

// New ensures path exists. An empty path selects a tgytdl directory under
// the system temp dir.
func New(path string) (*Dir, error) {
	if path == "" {
		path = filepath.Join(os.TempDir(), "tgytdl")
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("error creating scratch directory: %w", err)
	}
	return &Dir{path: path}, nil
}

func (d *Dir) Path() string {
	return d.path
}

// Allocate reserves an empty, uniquely named file with the given extension.
func (d *Dir) Allocate(ext string) (*File, error) {
	name := Prefix + uuid.NewString()
	if ext = strings.TrimPrefix(ext, "."); ext != "" {
		name += "." + ext
	}
	path := filepath.Join(d.path, name)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("error allocating scratch file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(path)
		return nil, fmt.Errorf("error allocating scratch file: %w", err)
	}
	log.Debug().Str("op", "scratch/allocate").Msgf("allocated %s", path)
	return &File{path: path}, nil
}

// Sweep removes scratch entries last modified more than maxAge ago and
// returns how many were removed. Files from live downloads are newer than
// any sensible maxAge; a zero maxAge removes everything.
func (d *Dir) Sweep(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(d.path)
	if err != nil {
		return 0, fmt.Errorf("error reading scratch directory: %w", err)
	}
	cutoff := time.Now().Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if !strings.HasPrefix(entry.Name(), Prefix) {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if maxAge > 0 && info.ModTime().After(cutoff) {
			continue
		}
		if err := os.RemoveAll(filepath.Join(d.path, entry.Name())); err != nil {
			return removed, fmt.Errorf("error removing %s: %w", entry.Name(), err)
		}
		removed++
	}
	log.Debug().Str("op", "scratch/sweep").Msgf("removed %d stale entries from %s", removed, d.path)
	return removed, nil
}

// File is owned by exactly one pipeline run.
type File struct {
	path string
}

func (f *File) Path() string {
	return f.path
}

func (f *File) Ext() string {
	return strings.TrimPrefix(filepath.Ext(f.path), ".")
}

func (f *File) Size() (int64, error) {
	info, err := os.Stat(f.path)
	if err != nil {
		return 0, err
	}
	return info.Size(), nil
}

// Remove deletes the file and any sidecars. Calling it on a file that no
// longer exists is a no-op.
func (f *File) Remove() error {
	var errs []error
	for _, p := range append([]string{f.path}, sidecars(f.path)...) {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func sidecars(path string) []string {
	out := make([]string, 0, len(sidecarSuffixes))
	for _, s := range sidecarSuffixes {
		out = append(out, path+s)
	}
	return out
}
