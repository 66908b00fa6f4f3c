// Package mapfile reads the line-oriented mapping files used by the term,
// user and URL resolvers.
//
// Each non-comment line holds "source,target" (CSV quoting rules apply, so
// values containing commas can be quoted). Lines starting with '#' are
// comments. Lookups are first-match-wins in file order.
package mapfile

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"golang.org/x/text/cases"
)

// ErrFileAccess marks a configured mapping file that could not be read. It is
// distinct from "no mapping configured", which is an empty path.
var ErrFileAccess = errors.New("mapping file not accessible")

// Entry is one source -> target line.
type Entry struct {
	Source string
	Target string
	Line   int
}

// File is an ordered list of entries.
type File struct {
	Path    string
	Entries []Entry
}

// foldKey case-folds s. cases.Caser is stateful, so one is built per call.
func foldKey(s string) string {
	return cases.Fold().String(s)
}

// Load reads path. An empty path returns (nil, nil): callers treat a nil
// *File as "no mapping configured".
func Load(path string) (*File, error) {
	if strings.TrimSpace(path) == "" {
		return nil, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", ErrFileAccess, path, err)
	}
	defer f.Close()

	entries, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &File{Path: path, Entries: entries}, nil
}

// Parse reads entries from r. Lines with fewer than two fields or an empty
// source are skipped.
func Parse(r io.Reader) ([]Entry, error) {
	cr := csv.NewReader(r)
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	var out []Entry
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		line, _ := cr.FieldPos(0)
		if len(rec) < 2 {
			continue
		}
		src := strings.TrimSpace(rec[0])
		if src == "" {
			continue
		}
		out = append(out, Entry{
			Source: src,
			Target: strings.TrimSpace(rec[1]),
			Line:   line,
		})
	}
}

// Lookup returns the target of the first entry whose source equals key,
// case-insensitively. A nil File never matches.
func (f *File) Lookup(key string) (string, bool) {
	if f == nil {
		return "", false
	}
	k := foldKey(strings.TrimSpace(key))
	for _, e := range f.Entries {
		if foldKey(e.Source) == k {
			return e.Target, true
		}
	}
	return "", false
}

// Len returns the number of entries; zero for a nil File.
func (f *File) Len() int {
	if f == nil {
		return 0
	}
	return len(f.Entries)
}
