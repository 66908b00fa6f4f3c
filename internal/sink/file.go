package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// FileStore keeps one JSON document per page under Dir. The page path
// "sitepages/news/a.aspx" is stored as Dir/sitepages/news/a.aspx.json.
type FileStore struct {
	Dir string
}

func NewFileStore(dir string) *FileStore { return &FileStore{Dir: dir} }

func (f *FileStore) file(path string) (string, error) {
	clean := filepath.Clean("/" + filepath.FromSlash(path))
	if clean == string(filepath.Separator) {
		return "", fmt.Errorf("sink: invalid page path %q", path)
	}
	return filepath.Join(f.Dir, strings.TrimPrefix(clean, string(filepath.Separator))+".json"), nil
}

func (f *FileStore) Get(_ context.Context, path string) (Document, error) {
	name, err := f.file(path)
	if err != nil {
		return Document{}, err
	}
	b, err := os.ReadFile(name)
	if errors.Is(err, fs.ErrNotExist) {
		return Document{}, ErrNotFound
	}
	if err != nil {
		return Document{}, fmt.Errorf("sink: read %s: %w", name, err)
	}
	var d Document
	if err := json.Unmarshal(b, &d); err != nil {
		return Document{}, fmt.Errorf("sink: decode %s: %w", name, err)
	}
	return d, nil
}

// Put writes the document through a temp file and rename.
func (f *FileStore) Put(_ context.Context, doc Document) error {
	name, err := f.file(doc.Path)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(name), 0o755); err != nil {
		return fmt.Errorf("sink: create dir: %w", err)
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("sink: encode %s: %w", doc.Path, err)
	}
	tmp := name + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("sink: write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, name); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("sink: rename %s: %w", name, err)
	}
	return nil
}
