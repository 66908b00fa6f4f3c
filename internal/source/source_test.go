package source

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestPage_FieldValue(t *testing.T) {
	t.Parallel()

	pages, err := DecodePages([]byte(`{"name":"Home.aspx","fields":{"Title":"Home","Empty":"","Null":null,"Count":3,"Flag":true}}`))
	if err != nil || len(pages) != 1 {
		t.Fatalf("DecodePages: %v (%d pages)", err, len(pages))
	}
	p := pages[0]

	tests := []struct {
		field  string
		want   string
		wantOK bool
	}{
		{"Title", "Home", true},
		{"Empty", "", true},
		{"Null", "", false},
		{"Missing", "", false},
		{"Count", "3", true},
		{"Flag", "true", true},
	}
	for _, tt := range tests {
		got, ok := p.FieldValue(tt.field)
		if got != tt.want || ok != tt.wantOK {
			t.Fatalf("FieldValue(%q)=(%q,%v), want (%q,%v)", tt.field, got, ok, tt.want, tt.wantOK)
		}
	}

	var nilPage *Page
	if _, ok := nilPage.FieldValue("Title"); ok {
		t.Fatalf("nil page has no fields")
	}
}

func TestPage_ID(t *testing.T) {
	t.Parallel()

	if got := (&Page{Name: "a.aspx", Folder: "/news/"}).ID(); got != "news/a.aspx" {
		t.Fatalf("ID=%q", got)
	}
	if got := (&Page{Name: "a.aspx"}).ID(); got != "a.aspx" {
		t.Fatalf("ID=%q", got)
	}
}

func TestDecodePages_Array(t *testing.T) {
	t.Parallel()

	pages, err := DecodePages([]byte(` [{"name":"a.aspx"}, null, {"name":"b.aspx","web_parts":[{"id":"1","type":"Text","zone":"Left"}]}] `))
	if err != nil {
		t.Fatalf("DecodePages: %v", err)
	}
	if len(pages) != 2 || pages[1].Name != "b.aspx" || len(pages[1].WebParts()) != 1 {
		t.Fatalf("unexpected pages: %#v", pages)
	}
	if pages, err := DecodePages(nil); err != nil || pages != nil {
		t.Fatalf("empty input: %v %v", pages, err)
	}
	if _, err := DecodePages([]byte("{")); err == nil {
		t.Fatalf("expected decode error")
	}
}

func TestLoader_Stdin(t *testing.T) {
	t.Parallel()

	l := NewLoader(http.DefaultClient, time.Second)
	pages, err := l.Load(context.Background(), Input{Stdin: bytes.NewBufferString(`{"name":"x.aspx"}`)})
	if err != nil || len(pages) != 1 || pages[0].Name != "x.aspx" {
		t.Fatalf("Load: %v %#v", err, pages)
	}
	if pages, err := l.Load(context.Background(), Input{}); err != nil || len(pages) != 0 {
		t.Fatalf("nil stdin: %v %v", pages, err)
	}
}

func TestLoader_URL(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/denied" {
			http.Error(w, "nope", http.StatusForbidden)
			return
		}
		_, _ = w.Write([]byte(`[{"name":"a.aspx"},{"name":"b.aspx"}]`))
	}))
	t.Cleanup(srv.Close)

	l := NewLoader(srv.Client(), 0)
	pages, err := l.Load(context.Background(), Input{URL: srv.URL + "/pages"})
	if err != nil || len(pages) != 2 {
		t.Fatalf("Load: %v (%d pages)", err, len(pages))
	}

	_, err = l.Load(context.Background(), Input{URL: srv.URL + "/denied"})
	if err == nil || !strings.Contains(err.Error(), "http status 403") || !strings.Contains(err.Error(), "nope") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStreamFromDir(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	files := map[string]string{
		"b.json":    `[{"name":"b1.aspx"},{"name":"b2.aspx"}]`,
		"a.json":    `{"name":"a.aspx","fields":{"Title":"A"}}`,
		"c.html":    `<div class="ms-rte-layoutszone-inner">C</div>`,
		"d.json":    `{broken`,
		"notes.txt": `ignored`,
	}
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.Mkdir(filepath.Join(dir, "sub"), 0o700); err != nil {
		t.Fatal(err)
	}

	var names, skipped []string
	err := StreamFromDir(dir, func(p *Page) error {
		names = append(names, p.SourceFile+":"+p.Name)
		return nil
	}, func(name string, err error) { skipped = append(skipped, name) })
	if err != nil {
		t.Fatalf("StreamFromDir: %v", err)
	}

	want := []string{"a.json:a.aspx", "b.json:b1.aspx", "b.json:b2.aspx", "c.html:c.aspx"}
	if strings.Join(names, ",") != strings.Join(want, ",") {
		t.Fatalf("order=%v, want %v", names, want)
	}
	if len(skipped) != 1 || skipped[0] != "d.json" {
		t.Fatalf("skipped=%v", skipped)
	}

	stop := errors.New("stop")
	calls := 0
	err = StreamFromDir(dir, func(*Page) error { calls++; return stop }, nil)
	if !errors.Is(err, stop) || calls != 1 {
		t.Fatalf("expected early stop, err=%v calls=%d", err, calls)
	}
}

func TestStreamFromDir_WikiMarkup(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "Home.aspx"), []byte("<p>hi</p>"), 0o600); err != nil {
		t.Fatal(err)
	}
	var got *Page
	if err := StreamFromDir(dir, func(p *Page) error { got = p; return nil }, nil); err != nil {
		t.Fatalf("StreamFromDir: %v", err)
	}
	if v, ok := got.FieldValue(WikiField); !ok || v != "<p>hi</p>" || got.Name != "Home.aspx" {
		t.Fatalf("wiki page=%#v", got)
	}
}
