// Package files manages the uploads tree that ingested knowledge items live
// in, and extracts plain text from the formats that support it.
package files

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/starkad/ordna/internal/models"
)

// textExtensions are the file types ReadText can extract from. Everything
// else is treated as binary and yields no text, which is not an error.
var textExtensions = map[string]struct{}{
	".txt": {}, ".md": {}, ".markdown": {}, ".csv": {}, ".json": {},
	".yaml": {}, ".yml": {}, ".log": {}, ".html": {}, ".xml": {},
	".go": {}, ".py": {}, ".js": {}, ".ts": {}, ".swift": {}, ".rs": {},
	".java": {}, ".c": {}, ".h": {}, ".sh": {}, ".sql": {},
}

// Store copies ingested files into a managed directory tree.
type Store struct {
	root string // absolute path to the uploads directory
}

// NewStore creates a store rooted at the given directory, creating it when
// missing.
func NewStore(root string) (*Store, error) {
	abs, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("files: resolve root: %w", err)
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("files: create root: %w", err)
	}
	return &Store{root: abs}, nil
}

// Root returns the absolute uploads directory.
func (s *Store) Root() string { return s.root }

// Ingest copies sourcePath into the managed tree and returns its record.
// Project-level files land under projects/<id>/, chat-scoped files under
// chats/<id>/ (or chats/unassigned/ when no chat is given).
func (s *Store) Ingest(sourcePath, projectID string, projectLevel bool, chatID string) (models.FileRecord, error) {
	var rec models.FileRecord

	data, err := os.ReadFile(sourcePath)
	if err != nil {
		return rec, fmt.Errorf("files: read source: %w", err)
	}

	base := sanitizeName(filepath.Base(sourcePath))
	if base == "" {
		return rec, fmt.Errorf("files: invalid source name: %s", sourcePath)
	}

	var subdir string
	switch {
	case projectLevel && projectID != "":
		subdir = filepath.Join("projects", projectID)
	case chatID != "":
		subdir = filepath.Join("chats", chatID)
	default:
		subdir = filepath.Join("chats", "unassigned")
	}

	dir := filepath.Join(s.root, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return rec, fmt.Errorf("files: mkdir: %w", err)
	}

	name := base
	dest := filepath.Join(dir, name)
	if _, statErr := os.Stat(dest); statErr == nil {
		// Name collision: disambiguate with a short unique suffix.
		ext := filepath.Ext(base)
		stem := strings.TrimSuffix(base, ext)
		name = fmt.Sprintf("%s-%s%s", stem, uuid.NewString()[:8], ext)
		dest = filepath.Join(dir, name)
	}

	if err := atomicWrite(dest, data); err != nil {
		return rec, err
	}

	return models.FileRecord{
		Name:         name,
		OriginalName: filepath.Base(sourcePath),
		Extension:    strings.ToLower(filepath.Ext(base)),
		Size:         int64(len(data)),
		LocalPath:    filepath.Join(subdir, name),
	}, nil
}

// ReadText returns the extracted text of a stored file. The second return
// is false for unsupported or unreadable files; extraction failure is a
// degraded result, never a hard error.
func (s *Store) ReadText(rec models.FileRecord) (string, bool) {
	if _, ok := textExtensions[rec.Extension]; !ok {
		return "", false
	}
	abs, err := s.safePath(rec.LocalPath)
	if err != nil {
		return "", false
	}
	data, err := os.ReadFile(abs)
	if err != nil {
		return "", false
	}
	return string(data), true
}

// Relocate moves a stored file to the project-level tree after graduation
// and returns the updated relative path.
func (s *Store) Relocate(rec models.FileRecord, projectID string) (string, error) {
	oldAbs, err := s.safePath(rec.LocalPath)
	if err != nil {
		return "", err
	}
	subdir := filepath.Join("projects", projectID)
	dir := filepath.Join(s.root, subdir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("files: mkdir for relocate: %w", err)
	}
	newRel := filepath.Join(subdir, rec.Name)
	newAbs := filepath.Join(s.root, newRel)
	if err := os.Rename(oldAbs, newAbs); err != nil {
		return "", fmt.Errorf("files: relocate: %w", err)
	}
	return newRel, nil
}

// safePath resolves a relative path against the uploads root and rejects
// any result that escapes it.
func (s *Store) safePath(rel string) (string, error) {
	cleaned := filepath.Clean(rel)
	if filepath.IsAbs(cleaned) {
		return "", fmt.Errorf("files: absolute paths not allowed: %s", rel)
	}
	abs, err := filepath.Abs(filepath.Join(s.root, cleaned))
	if err != nil {
		return "", fmt.Errorf("files: resolve path: %w", err)
	}
	if !strings.HasPrefix(abs, s.root+string(os.PathSeparator)) && abs != s.root {
		return "", fmt.Errorf("files: path escapes uploads root: %s", rel)
	}
	return abs, nil
}

// sanitizeName rejects path separators and traversal in a file name.
func sanitizeName(name string) string {
	cleaned := filepath.Clean(name)
	if cleaned != filepath.Base(cleaned) || strings.Contains(cleaned, "..") || cleaned == "." {
		return ""
	}
	return cleaned
}

// atomicWrite writes content via tmp file, fsync, and rename.
func atomicWrite(dest string, content []byte) error {
	dir := filepath.Dir(dest)
	tmp, err := os.CreateTemp(dir, ".ordna-tmp-*")
	if err != nil {
		return fmt.Errorf("files: create temp: %w", err)
	}
	tmpName := tmp.Name()

	success := false
	defer func() {
		if !success {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(content); err != nil {
		return fmt.Errorf("files: write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		return fmt.Errorf("files: fsync: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("files: close temp: %w", err)
	}
	if err := os.Rename(tmpName, dest); err != nil {
		return fmt.Errorf("files: rename: %w", err)
	}
	success = true
	return nil
}
