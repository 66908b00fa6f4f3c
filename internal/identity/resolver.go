// Package identity remaps principals from the source domain to target
// user principal names. Lookups never fail the caller: a principal that cannot
// be resolved is returned unchanged or as an empty result.
package identity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"pagetransform/internal/mapfile"

	log "github.com/sirupsen/logrus"
	"golang.org/x/text/cases"
)

// AccountType selects the directory object class searched for.
type AccountType string

const (
	AccountUser  AccountType = "user"
	AccountGroup AccountType = "group"
)

// Config scopes directory lookups.
type Config struct {
	// ConnectionString, when set, is used for every lookup.
	ConnectionString string
	// Domains maps short domain names to fully qualified names.
	Domains map[string]string
	// DefaultSuffix qualifies short names missing from Domains.
	DefaultSuffix string
	// CurrentDomain is used for accounts given without a domain.
	CurrentDomain string
}

// Resolver resolves and remaps principals. Results are memoized per
// resolver; a Resolver is safe for concurrent use.
type Resolver struct {
	Directory Directory
	Config    Config
	Mappings  *mapfile.File
	Log       log.FieldLogger

	mu   sync.Mutex
	upns map[string]string
}

func (r *Resolver) logger() log.FieldLogger {
	if r.Log == nil {
		return log.StandardLogger()
	}
	return r.Log
}

// ResolveFriendlyDomain returns the fully qualified, lower-case domain
// name for name. Names containing a dot are already qualified.
func (r *Resolver) ResolveFriendlyDomain(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return ""
	}
	if strings.Contains(name, ".") {
		return strings.ToLower(name)
	}
	fold := cases.Fold()
	for short, fqdn := range r.Config.Domains {
		if fold.String(short) == fold.String(name) && fqdn != "" {
			return strings.ToLower(fqdn)
		}
	}
	if r.Config.DefaultSuffix != "" {
		return strings.ToLower(name + "." + strings.TrimPrefix(r.Config.DefaultSuffix, "."))
	}
	return strings.ToLower(name)
}

// ConnectionString returns the override, or one computed from domain:
// "LDAP://contoso.com/DC=contoso,DC=com".
func (r *Resolver) ConnectionString(domain string) string {
	if r.Config.ConnectionString != "" {
		return r.Config.ConnectionString
	}
	fqdn := r.ResolveFriendlyDomain(domain)
	if fqdn == "" {
		return ""
	}
	parts := strings.Split(fqdn, ".")
	dcs := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			dcs = append(dcs, "DC="+p)
		}
	}
	return "LDAP://" + fqdn + "/" + strings.Join(dcs, ",")
}

// inScope reports whether accounts of domain may be looked up. Without
// configured domains every domain is in scope.
func (r *Resolver) inScope(domain string) bool {
	if len(r.Config.Domains) == 0 || r.Config.ConnectionString != "" {
		return true
	}
	fqdn := r.ResolveFriendlyDomain(domain)
	if strings.EqualFold(fqdn, r.ResolveFriendlyDomain(r.Config.CurrentDomain)) {
		return true
	}
	for _, v := range r.Config.Domains {
		if strings.EqualFold(fqdn, v) {
			return true
		}
	}
	return false
}

// SearchUPN looks up the user principal name of a "DOMAIN\name" account,
// a bare account name, or a SID. It returns "" when the account is outside
// the configured scope, unknown, or the directory cannot be reached.
func (r *Resolver) SearchUPN(ctx context.Context, accountType AccountType, accountNameOrSID string) string {
	domain, name := splitAccount(accountNameOrSID)
	if name == "" || r.Directory == nil {
		return ""
	}
	if domain == "" {
		domain = r.Config.CurrentDomain
	}
	if !isSID(name) && !r.inScope(domain) {
		return ""
	}

	cs := r.ConnectionString(domain)
	if cs == "" {
		return ""
	}
	key := string(accountType) + "\x00" + cs + "\x00" + strings.ToLower(name)

	r.mu.Lock()
	if v, ok := r.upns[key]; ok {
		r.mu.Unlock()
		return v
	}
	r.mu.Unlock()

	upn, err := r.query(ctx, cs, filterFor(accountType, name))
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			r.logger().WithFields(log.Fields{"account": accountNameOrSID, "err": err}).Warn("directory lookup failed")
			return ""
		}
		upn = ""
	}

	r.mu.Lock()
	if r.upns == nil {
		r.upns = make(map[string]string)
	}
	r.upns[key] = upn
	r.mu.Unlock()
	return upn
}

func (r *Resolver) query(ctx context.Context, cs, filter string) (string, error) {
	sess, err := r.Directory.Bind(ctx, cs)
	if err != nil {
		return "", fmt.Errorf("bind %s: %w", cs, err)
	}
	defer sess.Close()

	p, err := sess.Query(ctx, filter)
	if err != nil {
		return "", err
	}
	return p.UPN, nil
}

// RemapPrincipal maps a source identity to the target: mapping file entry,
// then directory UPN, then the identity unchanged.
func (r *Resolver) RemapPrincipal(ctx context.Context, sourceIdentity string) string {
	id := strings.TrimSpace(sourceIdentity)
	if id == "" {
		return sourceIdentity
	}

	claim, login := splitClaim(id)
	if v, ok := r.Mappings.Lookup(id); ok {
		return v
	}
	if login != id {
		if v, ok := r.Mappings.Lookup(login); ok {
			return v
		}
	}

	accountType := AccountUser
	if claim.group {
		accountType = AccountGroup
	}
	if upn := r.SearchUPN(ctx, accountType, login); upn != "" {
		if claim.prefix != "" && !claim.group {
			return "i:0#.f|membership|" + upn
		}
		return upn
	}
	return sourceIdentity
}

type claimInfo struct {
	prefix string
	group  bool
}

// splitClaim separates a claims-encoded login ("i:0#.w|CONTOSO\jdoe",
// "c:0+.w|S-1-5-21-...") into its prefix and account.
func splitClaim(s string) (claimInfo, string) {
	i := strings.LastIndex(s, "|")
	if i < 0 || !strings.Contains(s[:i], ":0") {
		return claimInfo{}, s
	}
	prefix := s[:i]
	return claimInfo{prefix: prefix, group: strings.HasPrefix(prefix, "c:")}, s[i+1:]
}

func splitAccount(s string) (domain, name string) {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\\'); i >= 0 {
		return s[:i], s[i+1:]
	}
	if i := strings.LastIndexByte(s, '@'); i > 0 {
		return s[i+1:], s[:i]
	}
	return "", s
}

func isSID(s string) bool {
	return strings.HasPrefix(strings.ToUpper(s), "S-1-")
}

func filterFor(t AccountType, name string) string {
	esc := ldapEscape(name)
	if isSID(name) {
		return "(objectSid=" + esc + ")"
	}
	if t == AccountGroup {
		return "(&(objectCategory=group)(sAMAccountName=" + esc + "))"
	}
	return "(&(objectCategory=person)(objectClass=user)(sAMAccountName=" + esc + "))"
}
