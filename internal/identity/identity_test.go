package identity

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"pagetransform/internal/mapfile"
)

type fakeDirectory struct {
	mu       sync.Mutex
	bindErr  error
	queryErr error
	upns     map[string]string // filter -> upn
	binds    []string
	filters  []string
}

func (d *fakeDirectory) Bind(ctx context.Context, cs string) (Session, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.binds = append(d.binds, cs)
	if d.bindErr != nil {
		return nil, d.bindErr
	}
	return fakeSession{d: d}, nil
}

type fakeSession struct{ d *fakeDirectory }

func (s fakeSession) Query(ctx context.Context, filter string) (Principal, error) {
	s.d.mu.Lock()
	defer s.d.mu.Unlock()
	s.d.filters = append(s.d.filters, filter)
	if s.d.queryErr != nil {
		return Principal{}, s.d.queryErr
	}
	upn, ok := s.d.upns[filter]
	if !ok {
		return Principal{}, ErrNotFound
	}
	return Principal{UPN: upn}, nil
}

func (fakeSession) Close() error { return nil }

func userFilter(name string) string {
	return "(&(objectCategory=person)(objectClass=user)(sAMAccountName=" + name + "))"
}

func TestResolveFriendlyDomain(t *testing.T) {
	t.Parallel()

	r := &Resolver{Config: Config{Domains: map[string]string{"CONTOSO": "Contoso.Com"}, DefaultSuffix: ".corp.local"}}
	tests := []struct{ in, want string }{
		{"contoso", "contoso.com"},
		{"fabrikam.net", "fabrikam.net"},
		{"EU", "eu.corp.local"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := r.ResolveFriendlyDomain(tt.in); got != tt.want {
			t.Fatalf("ResolveFriendlyDomain(%q)=%q, want %q", tt.in, got, tt.want)
		}
	}
	if got := (&Resolver{}).ResolveFriendlyDomain("Lab"); got != "lab" {
		t.Fatalf("no config: %q", got)
	}
}

func TestConnectionString(t *testing.T) {
	t.Parallel()

	r := &Resolver{Config: Config{Domains: map[string]string{"CONTOSO": "contoso.com"}}}
	if got := r.ConnectionString("CONTOSO"); got != "LDAP://contoso.com/DC=contoso,DC=com" {
		t.Fatalf("computed=%q", got)
	}
	r.Config.ConnectionString = "LDAP://dc01/DC=x"
	if got := r.ConnectionString("CONTOSO"); got != "LDAP://dc01/DC=x" {
		t.Fatalf("override=%q", got)
	}
}

func TestSearchUPN(t *testing.T) {
	t.Parallel()

	dir := &fakeDirectory{upns: map[string]string{userFilter("jdoe"): "jdoe@contoso.com"}}
	r := &Resolver{Directory: dir, Config: Config{Domains: map[string]string{"CONTOSO": "contoso.com"}, CurrentDomain: "CONTOSO"}}
	ctx := context.Background()

	if got := r.SearchUPN(ctx, AccountUser, `CONTOSO\jdoe`); got != "jdoe@contoso.com" {
		t.Fatalf("SearchUPN=%q", got)
	}
	if got := r.SearchUPN(ctx, AccountUser, "jdoe"); got != "jdoe@contoso.com" {
		t.Fatalf("current domain lookup=%q", got)
	}
	if len(dir.binds) != 1 || dir.binds[0] != "LDAP://contoso.com/DC=contoso,DC=com" {
		t.Fatalf("expected one memoized bind, got %v", dir.binds)
	}

	if got := r.SearchUPN(ctx, AccountUser, `FABRIKAM\jdoe`); got != "" {
		t.Fatalf("out of scope should be empty, got %q", got)
	}
	if got := r.SearchUPN(ctx, AccountUser, `CONTOSO\ghost`); got != "" {
		t.Fatalf("unknown should be empty, got %q", got)
	}
	if got := r.SearchUPN(ctx, AccountUser, `CONTOSO\a*)(x`); got != "" {
		t.Fatalf("escaped filter lookup=%q", got)
	}
	last := dir.filters[len(dir.filters)-1]
	if strings.Contains(last, "a*)(x") {
		t.Fatalf("filter not escaped: %s", last)
	}
}

func TestSearchUPN_ConnectivityFailureIsEmpty(t *testing.T) {
	t.Parallel()

	r := &Resolver{Directory: &fakeDirectory{bindErr: errors.New("connection refused")}}
	if got := r.SearchUPN(context.Background(), AccountUser, `CONTOSO\jdoe`); got != "" {
		t.Fatalf("bind failure=%q", got)
	}
	r = &Resolver{Directory: &fakeDirectory{queryErr: errors.New("timeout")}}
	if got := r.SearchUPN(context.Background(), AccountGroup, `CONTOSO\admins`); got != "" {
		t.Fatalf("query failure=%q", got)
	}
}

func TestRemapPrincipal(t *testing.T) {
	t.Parallel()

	mf, err := mapfile.Parse(strings.NewReader("CONTOSO\\old,new@fabrikam.com\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	dir := &fakeDirectory{upns: map[string]string{userFilter("jdoe"): "jdoe@contoso.com"}}
	r := &Resolver{Directory: dir, Mappings: &mapfile.File{Entries: mf}}
	ctx := context.Background()

	tests := []struct{ in, want string }{
		{`i:0#.w|contoso\old`, "new@fabrikam.com"},
		{`CONTOSO\old`, "new@fabrikam.com"},
		{`i:0#.w|CONTOSO\jdoe`, "i:0#.f|membership|jdoe@contoso.com"},
		{`CONTOSO\jdoe`, "jdoe@contoso.com"},
		{`CONTOSO\nobody`, `CONTOSO\nobody`},
		{"", ""},
	}
	for _, tt := range tests {
		if got := r.RemapPrincipal(ctx, tt.in); got != tt.want {
			t.Fatalf("RemapPrincipal(%q)=%q, want %q", tt.in, got, tt.want)
		}
	}

	var noDir Resolver
	if got := noDir.RemapPrincipal(ctx, `CONTOSO\jdoe`); got != `CONTOSO\jdoe` {
		t.Fatalf("no directory should pass through, got %q", got)
	}
}

func TestParseConnectionString(t *testing.T) {
	t.Parallel()

	addr, base, err := ParseConnectionString("LDAP://dc01.contoso.com:389/DC=contoso,DC=com")
	if err != nil || addr != "ldap://dc01.contoso.com:389" || base != "DC=contoso,DC=com" {
		t.Fatalf("got addr=%q base=%q err=%v", addr, base, err)
	}
	for _, bad := range []string{"", "dc01/DC=x", "http://dc01/DC=x", "LDAP:///DC=x"} {
		if _, _, err := ParseConnectionString(bad); err == nil {
			t.Fatalf("ParseConnectionString(%q) should fail", bad)
		}
	}
}
