package source

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// WikiField is the field a raw .html/.aspx file is stored under when a
// directory holds wiki markup instead of JSON exports.
const WikiField = "WikiField"

// StreamFromDir calls fn for every page in dir, in filename order.
//
//   - .json files hold one page or an array of pages
//   - .html/.htm/.aspx files become a wiki page with the markup as WikiField
//   - unreadable or unparseable files are skipped and reported to onSkip
//
// Iteration stops at the first error returned by fn.
func StreamFromDir(dir string, fn func(*Page) error, onSkip func(name string, err error)) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read dir: %w", err)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name() < entries[j].Name()
	})

	skip := func(name string, err error) {
		if onSkip != nil {
			onSkip(name, err)
		}
	}

	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		ext := strings.ToLower(filepath.Ext(name))
		if ext != ".json" && ext != ".html" && ext != ".htm" && ext != ".aspx" {
			continue
		}

		b, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			skip(name, err)
			continue
		}

		var pages []*Page
		if ext == ".json" {
			pages, err = DecodePages(b)
			if err != nil {
				skip(name, err)
				continue
			}
		} else {
			leaf := strings.TrimSuffix(name, filepath.Ext(name)) + ".aspx"
			pages = []*Page{{Name: leaf, Fields: map[string]any{WikiField: string(b)}}}
		}

		for _, p := range pages {
			p.SourceFile = name
			if p.Name == "" {
				p.Name = strings.TrimSuffix(name, filepath.Ext(name)) + ".aspx"
			}
			if err := fn(p); err != nil {
				return err
			}
		}
	}
	return nil
}
