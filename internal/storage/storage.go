// Package storage manages uploaded image files in the upload folder.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/kozaktomas/face-detection/internal/facematch"
)

var (
	// ErrNotAllowed is returned for files with an extension outside the allow list.
	ErrNotAllowed = errors.New("file type not allowed")
	// ErrNotFound is returned when a stored file does not exist.
	ErrNotFound = errors.New("file not found")
	// ErrInvalidName is returned for names that escape the upload folder.
	ErrInvalidName = errors.New("invalid file name")
)

// Store keeps files inside a single folder.
type Store struct {
	dir     string
	allowed map[string]bool
}

// New creates the folder if needed. allowed lists lowercase extensions without dot.
func New(dir string, allowed []string) (*Store, error) {
	if dir == "" {
		return nil, errors.New("upload folder is required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create upload folder: %w", err)
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve upload folder: %w", err)
	}
	m := make(map[string]bool, len(allowed))
	for _, ext := range allowed {
		m[strings.ToLower(strings.TrimPrefix(ext, "."))] = true
	}
	return &Store{dir: abs, allowed: m}, nil
}

// Dir returns the absolute upload folder.
func (s *Store) Dir() string {
	return s.dir
}

// Extension returns the lowercase extension of filename without the dot.
func Extension(filename string) string {
	return strings.ToLower(strings.TrimPrefix(filepath.Ext(filename), "."))
}

// AllowedFile reports whether filename has an allowed extension.
func (s *Store) AllowedFile(filename string) bool {
	ext := Extension(filename)
	return ext != "" && s.allowed[ext]
}

// SafeFilename reduces name to ASCII letters, digits, dots, dashes and
// underscores. Diacritics are stripped and whitespace becomes underscores.
// Leading dots are removed so the result is never hidden or relative.
func SafeFilename(name string) string {
	name = facematch.Fold(filepath.Base(filepath.ToSlash(name)))
	var b strings.Builder
	lastUnderscore := false
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-':
			b.WriteRune(r)
			lastUnderscore = false
		case r == '_' || r == ' ' || r == '\t':
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	return strings.Trim(b.String(), "._")
}

// Save writes data under a name derived from original. With a non-empty
// prefix the file is stored as "<prefix>_<original>", otherwise under a random
// uuid with the original extension. It returns the stored file name.
func (s *Store) Save(r io.Reader, original, prefix string) (string, error) {
	if !s.AllowedFile(original) {
		return "", fmt.Errorf("%w: %s", ErrNotAllowed, filepath.Base(original))
	}

	var name string
	if prefix != "" {
		name = SafeFilename(prefix + "_" + original)
	} else {
		name = strings.ReplaceAll(uuid.NewString(), "-", "") + "." + Extension(original)
	}
	if name == "" || !s.AllowedFile(name) {
		return "", fmt.Errorf("%w: %s", ErrInvalidName, original)
	}

	path := filepath.Join(s.dir, name)
	out, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	if errors.Is(err, os.ErrExist) {
		// Never overwrite; add a short suffix instead.
		name = strings.TrimSuffix(name, filepath.Ext(name)) + "_" + uuid.NewString()[:8] + filepath.Ext(name)
		path = filepath.Join(s.dir, name)
		out, err = os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
	}
	if err != nil {
		return "", fmt.Errorf("failed to create file: %w", err)
	}

	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		os.Remove(path)
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	if err := out.Close(); err != nil {
		os.Remove(path)
		return "", fmt.Errorf("failed to save file: %w", err)
	}
	return name, nil
}

// Path resolves a stored file name to its absolute path, rejecting names that
// would leave the upload folder.
func (s *Store) Path(name string) (string, error) {
	if name == "" || name != filepath.Base(name) || strings.HasPrefix(name, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.dir, name), nil
}

// Read returns the contents of a stored file.
func (s *Store) Read(name string) ([]byte, error) {
	path, err := s.Path(name)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	return data, nil
}

// Open opens a stored file for serving.
func (s *Store) Open(name string) (*os.File, error) {
	path, err := s.Path(name)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return f, err
}

// Delete removes a stored file. Missing files are not an error.
func (s *Store) Delete(name string) error {
	path, err := s.Path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}

// URL returns the API path under which a stored file is served.
func URL(prefix, name string) string {
	return strings.TrimSuffix(prefix, "/") + "/uploads/" + name
}
