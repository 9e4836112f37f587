package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/flemzord/pplx/internal/provider"
)

const fileExt = ".json"

// FileStore stores each session as an indented JSON file in a directory.
type FileStore struct {
	dir    string
	logger *slog.Logger
	now    func() time.Time
}

// Compile-time interface check.
var _ Store = (*FileStore)(nil)

// NewFileStore creates dir if needed and returns a store rooted there.
func NewFileStore(dir string, logger *slog.Logger) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("session: create directory %s: %w", dir, err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &FileStore{dir: dir, logger: logger, now: time.Now}, nil
}

// Dir returns the directory holding the session files.
func (s *FileStore) Dir() string {
	return s.dir
}

// Save writes sess to name.json (or a timestamped file when name is empty).
// The file is written to a temporary path first and renamed into place.
func (s *FileStore) Save(name string, sess Session) (string, error) {
	if err := ValidateName(name); err != nil {
		return "", err
	}

	now := s.now()
	if name == "" {
		name = DefaultName(now)
	}
	filename := name
	if !strings.HasSuffix(filename, fileExt) {
		filename += fileExt
	}

	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	sess.SavedAt = now
	if sess.Messages == nil {
		sess.Messages = []provider.LLMMessage{}
	}

	data, err := json.MarshalIndent(sess, "", "  ")
	if err != nil {
		return "", fmt.Errorf("session: marshal %s: %w", filename, err)
	}

	path := filepath.Join(s.dir, filename)
	tmp, err := os.CreateTemp(s.dir, ".tmp-"+filename+"-*")
	if err != nil {
		return "", fmt.Errorf("session: create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return "", fmt.Errorf("session: write %s: %w", filename, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("session: close %s: %w", filename, err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", fmt.Errorf("session: rename into %s: %w", filename, err)
	}

	s.logger.Debug("session saved", "file", filename, "messages", len(sess.Messages))
	return filename, nil
}

// Load reads the session stored under name, with or without the .json
// extension.
func (s *FileStore) Load(name string) (Session, error) {
	path, err := s.resolve(name)
	if err != nil {
		return Session{}, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return Session{}, fmt.Errorf("session: read %s: %w", filepath.Base(path), err)
	}

	var sess Session
	if err := json.Unmarshal(data, &sess); err != nil {
		return Session{}, fmt.Errorf("session: parse %s: %w", filepath.Base(path), err)
	}
	return sess, nil
}

// List returns every readable session, most recently saved first.
// Unreadable or corrupt files are skipped.
func (s *FileStore) List() ([]Info, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("session: list %s: %w", s.dir, err)
	}

	var infos []Info
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), fileExt) || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		sess, err := s.Load(e.Name())
		if err != nil {
			s.logger.Debug("session: skipping unreadable file", "file", e.Name(), "error", err)
			continue
		}
		infos = append(infos, Info{
			Name:         e.Name(),
			CreatedAt:    sess.CreatedAt,
			SavedAt:      sess.SavedAt,
			Model:        sess.Model,
			MessageCount: len(sess.Messages),
			Preview:      Preview(sess.Messages),
		})
	}

	slices.SortStableFunc(infos, func(a, b Info) int {
		return b.SavedAt.Compare(a.SavedAt)
	})
	return infos, nil
}

// Delete removes the session stored under name.
func (s *FileStore) Delete(name string) error {
	path, err := s.resolve(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("session: delete %s: %w", filepath.Base(path), err)
	}
	return nil
}

// resolve finds the file for name, trying the exact name first and then
// name with the extension appended.
func (s *FileStore) resolve(name string) (string, error) {
	if name == "" {
		return "", fmt.Errorf("session: name is required")
	}
	if err := ValidateName(name); err != nil {
		return "", err
	}

	for _, candidate := range []string{name, name + fileExt} {
		path := filepath.Join(s.dir, candidate)
		info, err := os.Stat(path)
		if err == nil && !info.IsDir() {
			return path, nil
		}
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return "", fmt.Errorf("session: stat %s: %w", candidate, err)
		}
	}
	return "", fmt.Errorf("%w: %s", ErrNotFound, name)
}
