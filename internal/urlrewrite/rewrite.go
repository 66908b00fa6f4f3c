// Package urlrewrite rewrites links embedded in page content from source
// site/web coordinates to target coordinates.
//
// Rewriting is a single left-to-right pass. Replaced text is never scanned
// again, so overlapping rules cannot cascade within one call.
package urlrewrite

import (
	"sort"
	"strings"

	"pagetransform/internal/mapfile"
)

// ModernPagesLibrary is the pages library segment of modern sites.
const ModernPagesLibrary = "sitepages"

// Options describes one rewrite context.
type Options struct {
	SourceSite string
	SourceWeb  string
	TargetWeb  string

	// PagesLibrary is the legacy pages library segment, e.g. "pages".
	PagesLibrary string

	// Mappings are url mapping file entries. They win over default
	// rewriting when both match at the same position.
	Mappings *mapfile.File
}

type pattern struct {
	match    string // ASCII lower-cased
	target   string
	absolute bool

	// pagesAware patterns replace a leading legacy pages segment.
	pagesAware bool
}

// Rewriter holds the compiled rules for one context. It is immutable and
// safe for concurrent use.
type Rewriter struct {
	patterns   []pattern
	pagesMatch string
}

// New compiles opts. Empty source or target coordinates yield a rewriter
// that only applies mapping file entries.
func New(opts Options) *Rewriter {
	r := &Rewriter{}
	if lib := strings.Trim(opts.PagesLibrary, "/ "); lib != "" {
		r.pagesMatch = "/" + asciiLower(lib)
	}

	var mapped []pattern
	if opts.Mappings != nil {
		for _, e := range opts.Mappings.Entries {
			src := strings.TrimRight(strings.TrimSpace(e.Source), "/")
			if src == "" {
				continue
			}
			mapped = append(mapped, pattern{
				match:    asciiLower(src),
				target:   strings.TrimRight(strings.TrimSpace(e.Target), "/"),
				absolute: isAbsolute(src),
			})
		}
	}
	sortLongestFirst(mapped)

	var defaults []pattern
	targetAbs := strings.TrimRight(strings.TrimSpace(opts.TargetWeb), "/")
	_, targetPath := splitURL(targetAbs)

	if web := strings.TrimRight(strings.TrimSpace(opts.SourceWeb), "/"); web != "" && targetAbs != "" {
		abs, webPath := splitURL(web)
		if abs {
			defaults = append(defaults, pattern{match: asciiLower(web), target: targetAbs, absolute: true, pagesAware: true})
		}
		switch {
		case webPath != "":
			defaults = append(defaults, pattern{match: asciiLower(webPath), target: targetPath, pagesAware: true})
		case r.pagesMatch != "":
			// A root web has no path to anchor on. Relative links are
			// only recognised by their leading pages library segment.
			defaults = append(defaults, pattern{match: r.pagesMatch, target: targetPath + "/" + ModernPagesLibrary})
		}
	}
	if site := strings.TrimRight(strings.TrimSpace(opts.SourceSite), "/"); site != "" && targetAbs != "" && isAbsolute(site) {
		if !containsMatch(defaults, asciiLower(site)) {
			defaults = append(defaults, pattern{match: asciiLower(site), target: targetAbs, absolute: true, pagesAware: true})
		}
	}
	sortLongestFirst(defaults)

	r.patterns = append(mapped, defaults...)
	return r
}

// Rewrite is a convenience for New(...).Rewrite(text) without mapping
// entries.
func Rewrite(text, sourceSite, sourceWeb, targetWeb, pagesLibrary string) string {
	return New(Options{
		SourceSite:   sourceSite,
		SourceWeb:    sourceWeb,
		TargetWeb:    targetWeb,
		PagesLibrary: pagesLibrary,
	}).Rewrite(text)
}

// Rewrite returns text with every anchored match re-rooted. Text around
// matches is copied unchanged. A match keeps its absolute or relative form
// and whatever followed the matched prefix, trailing slash included.
//
// Rewriting target-rooted text is a no-op only when the source web path is
// not a prefix of the target web path.
func (r *Rewriter) Rewrite(text string) string {
	if r == nil || len(r.patterns) == 0 || text == "" {
		return text
	}
	lower := asciiLower(text)

	var b strings.Builder
	b.Grow(len(text))
	changed := false

	for i := 0; i < len(text); {
		p, ok := r.matchAt(lower, i)
		if !ok {
			b.WriteByte(text[i])
			i++
			continue
		}
		changed = true
		i += len(p.match)
		b.WriteString(p.target)

		if p.pagesAware && r.pagesMatch != "" && strings.HasPrefix(lower[i:], r.pagesMatch) && endsSegment(lower, i+len(r.pagesMatch)) {
			b.WriteString("/" + ModernPagesLibrary)
			i += len(r.pagesMatch)
			continue
		}
		if p.target == "" && (i >= len(text) || text[i] != '/') {
			b.WriteByte('/')
		}
	}
	if !changed {
		return text
	}
	return b.String()
}

func (r *Rewriter) matchAt(lower string, i int) (pattern, bool) {
	for _, p := range r.patterns {
		if !strings.HasPrefix(lower[i:], p.match) {
			continue
		}
		if i > 0 && !startsToken(lower[i-1], p.absolute) {
			continue
		}
		if !endsSegment(lower, i+len(p.match)) {
			continue
		}
		return p, true
	}
	return pattern{}, false
}

// startsToken reports whether prev may precede a match. An absolute match
// must not continue a scheme; a relative one must not continue a host or
// path (so "/sites/a" inside "https://other/sites/a" is left alone).
func startsToken(prev byte, absolute bool) bool {
	if isAlnum(prev) || prev >= 0x80 {
		return false
	}
	if absolute {
		return !strings.ContainsRune("+-.", rune(prev))
	}
	return !strings.ContainsRune("._~%-/:@", rune(prev))
}

// endsSegment reports whether position j of s terminates a path segment.
// A ':' continues it, so a host match does not swallow a port.
func endsSegment(s string, j int) bool {
	if j >= len(s) {
		return true
	}
	c := s[j]
	if c == '/' {
		return true
	}
	return !isSegmentByte(c)
}

func isSegmentByte(c byte) bool {
	return isAlnum(c) || c >= 0x80 || strings.IndexByte("-._~%:", c) >= 0
}

func isAlnum(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9'
}

func isAbsolute(s string) bool {
	abs, _ := splitURL(s)
	return abs
}

// splitURL reports whether s carries a scheme and host and returns its
// path with trailing slashes removed.
func splitURL(s string) (bool, string) {
	i := strings.Index(s, "://")
	if i <= 0 {
		return false, strings.TrimRight(s, "/")
	}
	rest := s[i+3:]
	j := strings.IndexByte(rest, '/')
	if j < 0 {
		return true, ""
	}
	return true, strings.TrimRight(rest[j:], "/")
}

// asciiLower lower-cases ASCII letters only, keeping byte offsets stable.
func asciiLower(s string) string {
	b := []byte(s)
	for i, c := range b {
		if c >= 'A' && c <= 'Z' {
			b[i] = c + 'a' - 'A'
		}
	}
	return string(b)
}

func sortLongestFirst(ps []pattern) {
	sort.SliceStable(ps, func(i, j int) bool { return len(ps[i].match) > len(ps[j].match) })
}

func containsMatch(ps []pattern, m string) bool {
	for _, p := range ps {
		if p.match == m {
			return true
		}
	}
	return false
}
