// Package resource stores imported images under uuid file names.
//
// A storage directory holds the images, an index file listing them in
// insertion order (.dali-resource.txt) and one cursor file per named
// stream (.dali-stream-<name>.txt). Streams let a consumer pick up only the
// images added since it last looked.
package resource

import (
	"bufio"
	"errors"
	"fmt"
	"image"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"

	"github.com/gogpu/dali/imageio"
	"github.com/gogpu/dali/internal/cache"
)

// IndexFile is the name of the index inside a storage directory.
const IndexFile = ".dali-resource.txt"

// DefaultCacheSize is the number of decoded images Load keeps by default.
const DefaultCacheSize = 16

// Errors returned by Storage.
var (
	// ErrIsFile is returned by Open when the location is a regular file.
	ErrIsFile = errors.New("resource: storage location is a file")

	// ErrExists is returned when the target file already exists.
	ErrExists = errors.New("resource: already exists")

	// ErrInvalidSource is returned for a missing source or one whose
	// extension is not a supported format.
	ErrInvalidSource = errors.New("resource: invalid source")

	// ErrInvalidName is returned for names that are not <uuid>.<ext>.
	ErrInvalidName = errors.New("resource: invalid name")

	// ErrInvalidStream is returned for stream names that are not a plain
	// file name component.
	ErrInvalidStream = errors.New("resource: invalid stream name")
)

// Storage is a directory of uuid-named images.
type Storage struct {
	dir    string
	index  string
	log    *slog.Logger
	images *cache.Cache[string, image.Image]
}

// Option configures a Storage.
type Option func(*Storage)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(s *Storage) {
		if l != nil {
			s.log = l
		}
	}
}

// WithCache sets how many decoded images Load keeps. n <= 0 disables the
// cache. Stored files never change, so cached images do not go stale.
func WithCache(n int) Option {
	return func(s *Storage) {
		s.images = cache.New[string, image.Image](n)
	}
}

// DefaultRoot returns the default root of named storages, $HOME/Dali/storage.
func DefaultRoot() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resource: home directory: %w", err)
	}
	return filepath.Join(home, "Dali", "storage"), nil
}

// Open opens or creates the storage at dir. A missing index is rebuilt
// from the uuid-named images already in the directory.
func Open(dir string, opts ...Option) (*Storage, error) {
	s := &Storage{
		dir:    dir,
		index:  filepath.Join(dir, IndexFile),
		log:    slog.New(slog.DiscardHandler),
		images: cache.New[string, image.Image](DefaultCacheSize),
	}
	for _, opt := range opts {
		opt(s)
	}

	info, err := os.Stat(dir)
	switch {
	case err == nil && !info.IsDir():
		return nil, fmt.Errorf("%w: %s", ErrIsFile, dir)
	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("resource: create %s: %w", dir, err)
		}
	case err != nil:
		return nil, fmt.Errorf("resource: stat %s: %w", dir, err)
	}

	if _, err := os.Stat(s.index); errors.Is(err, os.ErrNotExist) {
		if err := s.rebuildIndex(); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Storage) rebuildIndex() error {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return fmt.Errorf("resource: read %s: %w", s.dir, err)
	}
	var names []string
	for _, e := range entries {
		if e.Type().IsRegular() && validName(e.Name()) {
			names = append(names, e.Name())
		}
	}
	var b strings.Builder
	for _, n := range names {
		b.WriteString(n)
		b.WriteByte('\n')
	}
	if err := os.WriteFile(s.index, []byte(b.String()), 0o644); err != nil {
		return fmt.Errorf("resource: create index: %w", err)
	}
	s.log.Info("resource: index rebuilt", "dir", s.dir, "entries", len(names))
	return nil
}

// Dir returns the storage directory.
func (s *Storage) Dir() string { return s.dir }

// Path returns the file path of name.
func (s *Storage) Path(name string) string { return filepath.Join(s.dir, name) }

// FileName returns the stored name of id in format f.
func FileName(id uuid.UUID, f imageio.Format) string { return id.String() + f.Ext() }

// ParseName splits a stored name into its id and format.
func ParseName(name string) (uuid.UUID, imageio.Format, error) {
	base, ext, ok := strings.Cut(name, ".")
	if !ok || len(base) != 36 {
		return uuid.Nil, 0, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	id, err := uuid.Parse(base)
	if err != nil {
		return uuid.Nil, 0, fmt.Errorf("%w: %q: %w", ErrInvalidName, name, err)
	}
	f, err := imageio.ParseFormat(ext)
	if err != nil {
		return uuid.Nil, 0, fmt.Errorf("%w: %q: %w", ErrInvalidName, name, err)
	}
	return id, f, nil
}

func validName(name string) bool {
	_, _, err := ParseName(name)
	return err == nil
}

// Store encodes img in format f under a fresh uuid and appends it to the
// index. It returns the stored name.
func (s *Storage) Store(img image.Image, f imageio.Format) (string, error) {
	name := FileName(uuid.New(), f)
	path := s.Path(name)
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("%w: %s", ErrExists, path)
	}
	if err := imageio.SaveAs(path, img, f); err != nil {
		return "", fmt.Errorf("resource: store: %w", err)
	}
	if err := s.appendIndex(name); err != nil {
		return "", err
	}
	s.logStored(name, path)
	return name, nil
}

// StoreFile copies src under a fresh uuid, keeping its format.
func (s *Storage) StoreFile(src string) (string, error) {
	info, err := os.Stat(src)
	if err != nil || !info.Mode().IsRegular() {
		return "", fmt.Errorf("%w: %s", ErrInvalidSource, src)
	}
	f, err := imageio.FormatOf(src)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %w", ErrInvalidSource, src, err)
	}

	name := FileName(uuid.New(), f)
	path := s.Path(name)
	if err := copyFile(path, src); err != nil {
		return "", fmt.Errorf("resource: copy %s: %w", src, err)
	}
	if err := s.appendIndex(name); err != nil {
		return "", err
	}
	s.logStored(name, path)
	return name, nil
}

func (s *Storage) logStored(name, path string) {
	var size uint64
	if info, err := os.Stat(path); err == nil {
		size = uint64(info.Size())
	}
	s.log.Debug("resource: stored", "name", name, "size", humanize.Bytes(size))
}

func copyFile(dst, src string) error {
	in, err := os.Open(filepath.Clean(src))
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(filepath.Clean(dst), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

func (s *Storage) appendIndex(name string) error {
	f, err := os.OpenFile(s.index, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("resource: open index: %w", err)
	}
	if _, err := f.WriteString(name + "\n"); err != nil {
		_ = f.Close()
		return fmt.Errorf("resource: write index: %w", err)
	}
	return f.Close()
}

// Load decodes the stored image name. Recently loaded images come from an
// in-memory cache.
func (s *Storage) Load(name string) (image.Image, error) {
	if !validName(name) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	if img, ok := s.images.Get(name); ok {
		return img, nil
	}
	img, err := imageio.Load(s.Path(name))
	if err != nil {
		return nil, fmt.Errorf("resource: load %s: %w", name, err)
	}
	s.images.Set(name, img)
	return img, nil
}

// Contains reports whether name is stored.
func (s *Storage) Contains(name string) bool {
	info, err := os.Stat(s.Path(name))
	return err == nil && info.Mode().IsRegular()
}

// List returns the stored names in insertion order. Index entries whose
// file was deleted are skipped.
func (s *Storage) List() ([]string, error) {
	f, err := os.Open(s.index)
	if err != nil {
		return nil, fmt.Errorf("resource: open index: %w", err)
	}
	defer func() { _ = f.Close() }()

	var names []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		name := strings.TrimSpace(sc.Text())
		if !validName(name) || !s.Contains(name) {
			continue
		}
		names = append(names, name)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("resource: read index: %w", err)
	}
	return names, nil
}

// ContainsFile reports whether path is one of the stored files, comparing
// file identity rather than names.
func (s *Storage) ContainsFile(path string) (bool, error) {
	ref, err := os.Stat(path)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("resource: stat %s: %w", path, err)
	}
	if !ref.Mode().IsRegular() {
		return false, fmt.Errorf("%w: %s is not a file", ErrInvalidSource, path)
	}

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return false, fmt.Errorf("resource: read %s: %w", s.dir, err)
	}
	return slices.ContainsFunc(entries, func(e os.DirEntry) bool {
		if !e.Type().IsRegular() {
			return false
		}
		info, err := e.Info()
		return err == nil && os.SameFile(info, ref)
	}), nil
}

// Accepts reports whether path is a decodable image file.
func (s *Storage) Accepts(path string) bool {
	_, err := imageio.Load(path)
	return err == nil
}
