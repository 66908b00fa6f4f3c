package identity

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/go-ldap/ldap/v3"
)

// ErrNotFound is returned by Session.Query when no principal matches.
var ErrNotFound = errors.New("identity: principal not found")

// Principal is one directory object.
type Principal struct {
	DN             string
	UPN            string
	SAMAccountName string
	Mail           string
}

// Directory opens sessions against a directory service.
type Directory interface {
	Bind(ctx context.Context, connectionString string) (Session, error)
}

// Session is one bound directory connection.
type Session interface {
	Query(ctx context.Context, filter string) (Principal, error)
	Close() error
}

// LDAPDirectory is a Directory backed by github.com/go-ldap/ldap/v3.
// Connection strings look like "LDAP://dc.contoso.com/DC=contoso,DC=com".
type LDAPDirectory struct {
	BindUser     string
	BindPassword string
}

func (d *LDAPDirectory) Bind(ctx context.Context, connectionString string) (Session, error) {
	addr, base, err := ParseConnectionString(connectionString)
	if err != nil {
		return nil, err
	}
	conn, err := ldap.DialURL(addr)
	if err != nil {
		return nil, fmt.Errorf("ldap dial %s: %w", addr, err)
	}
	if d.BindUser != "" {
		err = conn.Bind(d.BindUser, d.BindPassword)
	} else {
		err = conn.UnauthenticatedBind("")
	}
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("ldap bind: %w", err)
	}
	return &ldapSession{conn: conn, base: base}, nil
}

type ldapSession struct {
	conn *ldap.Conn
	base string
}

var principalAttributes = []string{"userPrincipalName", "sAMAccountName", "mail", "distinguishedName"}

func (s *ldapSession) Query(ctx context.Context, filter string) (Principal, error) {
	req := ldap.NewSearchRequest(
		s.base,
		ldap.ScopeWholeSubtree, ldap.NeverDerefAliases,
		0, 0, false,
		filter,
		principalAttributes,
		nil,
	)
	res, err := s.conn.Search(req)
	if err != nil {
		if ldap.IsErrorWithCode(err, ldap.LDAPResultNoSuchObject) {
			return Principal{}, ErrNotFound
		}
		return Principal{}, fmt.Errorf("ldap search: %w", err)
	}
	if len(res.Entries) == 0 {
		return Principal{}, ErrNotFound
	}
	e := res.Entries[0]
	return Principal{
		DN:             e.DN,
		UPN:            e.GetAttributeValue("userPrincipalName"),
		SAMAccountName: e.GetAttributeValue("sAMAccountName"),
		Mail:           e.GetAttributeValue("mail"),
	}, nil
}

func (s *ldapSession) Close() error {
	s.conn.Close()
	return nil
}

// ParseConnectionString splits "LDAP://host[:port]/BaseDN" into a dial URL
// and a search base.
func ParseConnectionString(cs string) (addr, base string, err error) {
	cs = strings.TrimSpace(cs)
	i := strings.Index(cs, "://")
	if i <= 0 {
		return "", "", fmt.Errorf("connection string %q: missing scheme", cs)
	}
	scheme := strings.ToLower(cs[:i])
	if scheme != "ldap" && scheme != "ldaps" {
		return "", "", fmt.Errorf("connection string %q: unsupported scheme %q", cs, scheme)
	}
	rest := cs[i+3:]
	host := rest
	if j := strings.IndexByte(rest, '/'); j >= 0 {
		host, base = rest[:j], rest[j+1:]
	}
	if host == "" {
		return "", "", fmt.Errorf("connection string %q: missing host", cs)
	}
	if unescaped, uerr := url.PathUnescape(base); uerr == nil {
		base = unescaped
	}
	return scheme + "://" + host, base, nil
}

func ldapEscape(s string) string { return ldap.EscapeFilter(s) }
