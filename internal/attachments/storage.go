// Package attachments stores uploaded files on an afero filesystem under
// one directory per project.
package attachments

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"
)

// DefaultMaxSize is the upload limit when none is configured.
const DefaultMaxSize int64 = 10 << 20

// Storage errors.
var (
	ErrTooLarge    = errors.New("attachment exceeds the maximum size")
	ErrEmptyFile   = errors.New("attachment is empty")
	ErrInvalidName = errors.New("invalid stored attachment name")
)

// Storage saves and opens attachment files.
type Storage struct {
	fs      afero.Fs
	root    string
	maxSize int64
}

// NewStorage returns a Storage rooted at root on fs. A maxSize of zero or
// less selects DefaultMaxSize.
func NewStorage(fs afero.Fs, root string, maxSize int64) *Storage {
	if maxSize <= 0 {
		maxSize = DefaultMaxSize
	}
	return &Storage{fs: fs, root: root, maxSize: maxSize}
}

// NewOSStorage returns a Storage on the local disk.
func NewOSStorage(root string, maxSize int64) *Storage {
	return NewStorage(afero.NewOsFs(), root, maxSize)
}

// MaxSize returns the upload limit in bytes.
func (s *Storage) MaxSize() int64 {
	return s.maxSize
}

// Saved describes a stored file.
type Saved struct {
	FileName   string
	StoredName string
	Size       int64
}

// SanitizeFileName reduces an uploaded name to its base name. Blank or
// dot-only names become "file".
func SanitizeFileName(name string) string {
	name = strings.ReplaceAll(name, "\\", "/")
	name = path.Base(strings.TrimSpace(name))
	name = strings.Map(func(r rune) rune {
		if r < 32 || r == 127 {
			return -1
		}
		return r
	}, name)
	if name == "" || name == "." || name == ".." || name == "/" {
		return "file"
	}
	return name
}

// Save copies r into a new file of the project. The stored name is a
// UUIDv7 plus the original extension. Uploads larger than MaxSize are
// removed and rejected with ErrTooLarge.
func (s *Storage) Save(projectID int64, fileName string, r io.Reader) (*Saved, error) {
	fileName = SanitizeFileName(fileName)
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generating attachment name: %w", err)
	}
	stored := id.String() + strings.ToLower(filepath.Ext(fileName))

	dir := s.projectDir(projectID)
	if err := s.fs.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating attachment directory: %w", err)
	}
	full := filepath.Join(dir, stored)
	f, err := s.fs.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("creating attachment: %w", err)
	}

	n, err := io.Copy(f, io.LimitReader(r, s.maxSize+1))
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	switch {
	case err != nil:
		s.fs.Remove(full)
		return nil, fmt.Errorf("writing attachment: %w", err)
	case n > s.maxSize:
		s.fs.Remove(full)
		return nil, ErrTooLarge
	case n == 0:
		s.fs.Remove(full)
		return nil, ErrEmptyFile
	}
	return &Saved{FileName: fileName, StoredName: stored, Size: n}, nil
}

// Open returns the stored file for reading.
func (s *Storage) Open(projectID int64, storedName string) (afero.File, error) {
	if storedName == "" || storedName != filepath.Base(storedName) || strings.HasPrefix(storedName, ".") {
		return nil, ErrInvalidName
	}
	return s.fs.Open(filepath.Join(s.projectDir(projectID), storedName))
}

// Remove deletes a stored file. A missing file is not an error.
func (s *Storage) Remove(projectID int64, storedName string) error {
	if storedName == "" || storedName != filepath.Base(storedName) {
		return ErrInvalidName
	}
	err := s.fs.Remove(filepath.Join(s.projectDir(projectID), storedName))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

func (s *Storage) projectDir(projectID int64) string {
	return filepath.Join(s.root, strconv.FormatInt(projectID, 10))
}
