package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestOptions_Coercion(t *testing.T) {
	t.Parallel()

	o := Options{
		"flag":  "true",
		"count": float64(3),
		"name":  "  x  ",
		"map":   map[string]any{"a": 1, "b": "two"},
	}
	if !o.Bool("flag", false) {
		t.Fatalf("Bool: expected true")
	}
	if got := o.Int("count", 0); got != 3 {
		t.Fatalf("Int: got %d", got)
	}
	if got := o.String("name", ""); got != "x" {
		t.Fatalf("String: got %q", got)
	}
	if got := o.Int("missing", 7); got != 7 {
		t.Fatalf("Int default: got %d", got)
	}
	m := o.StringMap("map")
	if m["a"] != "1" || m["b"] != "two" {
		t.Fatalf("StringMap: got %#v", m)
	}
	if len(o.StringMap("nope")) != 0 {
		t.Fatalf("StringMap missing key should be empty")
	}
}

func TestRequest_SettingsEnumeratesProperties(t *testing.T) {
	t.Parallel()

	r := Request{PageID: "p1", Overwrite: true, Properties: Options{"z": 1, "a": "b"}}
	s := r.Settings()

	found := map[string]string{}
	for _, kv := range s {
		found[kv.Name] = kv.Value
	}
	if found["PageID"] != "p1" || found["Overwrite"] != "true" {
		t.Fatalf("unexpected settings: %#v", found)
	}
	if found["Properties.a"] != "b" || found["Properties.z"] != "1" {
		t.Fatalf("properties not enumerated: %#v", found)
	}
	// Properties are appended in key order.
	if s[len(s)-2].Name != "Properties.a" {
		t.Fatalf("expected sorted property keys, got %s", s[len(s)-2].Name)
	}
}

func TestRequest_Validate(t *testing.T) {
	t.Parallel()

	if err := (Request{}).Validate(); err == nil {
		t.Fatalf("expected error for empty request")
	}
	r := Request{SourceWeb: "https://h/sites/A", TargetWeb: "https://h/sites/B"}
	if err := r.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if r.EffectiveSourceSite() != r.SourceWeb {
		t.Fatalf("EffectiveSourceSite should default to SourceWeb")
	}
	if r.EffectivePagesLibrary() != "pages" {
		t.Fatalf("EffectivePagesLibrary default: %q", r.EffectivePagesLibrary())
	}
}

func TestLoadRun_FileAndDefaults(t *testing.T) {
	t.Parallel()

	tmp := t.TempDir()
	p := filepath.Join(tmp, "cfg.yaml")
	body := []byte("log:\n  level: debug\nldap:\n  domains:\n    CONTOSO: contoso.com\nbatch:\n  concurrency: 0\n")
	if err := os.WriteFile(p, body, 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	r, err := LoadRun(NewViper(p), p)
	if err != nil {
		t.Fatalf("LoadRun: %v", err)
	}
	if r.Log.Level != "debug" {
		t.Fatalf("log level: %q", r.Log.Level)
	}
	if r.Sink.Kind != "file" {
		t.Fatalf("sink default: %q", r.Sink.Kind)
	}
	if r.Batch.Concurrency != 1 {
		t.Fatalf("concurrency clamp: %d", r.Batch.Concurrency)
	}
	if r.LDAP.Domains["contoso"] != "contoso.com" && r.LDAP.Domains["CONTOSO"] != "contoso.com" {
		t.Fatalf("domains: %#v", r.LDAP.Domains)
	}
}

func TestLoadRun_MissingExplicitFile(t *testing.T) {
	t.Parallel()

	p := filepath.Join(t.TempDir(), "nope.yaml")
	if _, err := LoadRun(NewViper(p), p); err == nil {
		t.Fatalf("expected error for missing explicit config")
	}
}
