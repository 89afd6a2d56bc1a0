package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Key kinds. Each generated key has the form "<kind>:<sha256>".
const (
	KindRepositories = "repos"
	KindCommits      = "commits"
	KindDocument     = "doc"
)

// Keyer derives cache keys from normalized request parameters.
type Keyer interface {
	// RepositoriesKey identifies a user's filtered repository listing in one
	// sort order.
	RepositoriesKey(username, sort string, opts RepoKeyOpts) string

	// CommitsKey identifies a commit listing. since is the zero time when absent.
	CommitsKey(owner, repo string, since time.Time) string

	// DocumentKey identifies a document lookup of the given kind.
	DocumentKey(kind, owner, repo string) string
}

// RepoKeyOpts are the listing filters that change a repository listing's content.
type RepoKeyOpts struct {
	IncludeForks    bool
	IncludeArchived bool
}

// DefaultKeyer hashes the normalized parameters with SHA-256.
type DefaultKeyer struct{}

// NewDefaultKeyer returns the standard keyer.
func NewDefaultKeyer() Keyer { return DefaultKeyer{} }

// RepositoriesKey normalizes username by trimming and lowercasing it.
func (DefaultKeyer) RepositoriesKey(username, sort string, opts RepoKeyOpts) string {
	return hashKey(KindRepositories, normalizeName(username), sort, opts.IncludeForks, opts.IncludeArchived)
}

// CommitsKey truncates since to its UTC day so every instant within a day
// shares one entry.
func (DefaultKeyer) CommitsKey(owner, repo string, since time.Time) string {
	day := ""
	if !since.IsZero() {
		day = StartOfDay(since).Format(time.RFC3339)
	}
	return hashKey(KindCommits, normalizeName(owner), normalizeName(repo), day)
}

// DocumentKey normalizes owner and repo case.
func (DefaultKeyer) DocumentKey(kind, owner, repo string) string {
	return hashKey(KindDocument, kind, normalizeName(owner), normalizeName(repo))
}

// StartOfDay returns midnight UTC of t's UTC date.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func normalizeName(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// hashKey generates a cache key by hashing the components.
// The key format is: prefix:hash(parts...)
func hashKey(prefix string, parts ...any) string {
	data, _ := json.Marshal(parts)
	sum := sha256.Sum256(data)
	return fmt.Sprintf("%s:%s", prefix, hex.EncodeToString(sum[:]))
}

// Hash computes a SHA-256 hash of the input data as 64 hex characters.
func Hash(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// KeyType extracts the kind from a key, ignoring any scope prefix.
// "prod:repos:ab12..." yields "repos". Keys without a separator yield "".
func KeyType(key string) string {
	i := strings.LastIndexByte(key, ':')
	if i < 0 {
		return ""
	}
	head := key[:i]
	if j := strings.LastIndexByte(head, ':'); j >= 0 {
		return head[j+1:]
	}
	return head
}

// ScopedKeyer prefixes every key from an inner Keyer, isolating deployments
// that share one Redis or Mongo instance.
//
//	k := NewScopedKeyer(NewDefaultKeyer(), "staging:")
type ScopedKeyer struct {
	inner  Keyer
	prefix string
}

// NewScopedKeyer wraps inner with prefix. A nil inner uses [DefaultKeyer].
func NewScopedKeyer(inner Keyer, prefix string) Keyer {
	if inner == nil {
		inner = NewDefaultKeyer()
	}
	return &ScopedKeyer{inner: inner, prefix: prefix}
}

func (k *ScopedKeyer) RepositoriesKey(username, sort string, opts RepoKeyOpts) string {
	return k.prefix + k.inner.RepositoriesKey(username, sort, opts)
}

func (k *ScopedKeyer) CommitsKey(owner, repo string, since time.Time) string {
	return k.prefix + k.inner.CommitsKey(owner, repo, since)
}

func (k *ScopedKeyer) DocumentKey(kind, owner, repo string) string {
	return k.prefix + k.inner.DocumentKey(kind, owner, repo)
}
