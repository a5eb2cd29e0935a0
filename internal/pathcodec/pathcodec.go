package pathcodec

import (
	"os"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

const (
	DefaultDelimiter = "-"
	DefaultMaxProbes = 10000

	defaultMemoSize = 4096
)

// Encode turns an absolute path into a project directory name,
// e.g. /Users/chen/cc-exporter -> -Users-chen-cc-exporter.
func Encode(path, delim string) string {
	return strings.ReplaceAll(path, "/", delim)
}

// DecodeFast replaces every delimiter with a separator. It never fails but is
// wrong whenever an original segment contained the delimiter.
func DecodeFast(encoded, delim string) string {
	return "/" + strings.ReplaceAll(strings.TrimPrefix(encoded, delim), delim, "/")
}

// LeafName returns the last non-empty segment of decoded, or encoded when
// decoded has none.
func LeafName(decoded, encoded string) string {
	parts := strings.Split(decoded, "/")
	for i := len(parts) - 1; i >= 0; i-- {
		if parts[i] != "" {
			return parts[i]
		}
	}
	return encoded
}

type Decoded struct {
	Path   string
	Exists bool // false when Path is the DecodeFast fallback
}

type ProbeFunc func(path string) bool

type Option func(*Resolver)

// WithProbe replaces the directory existence check.
func WithProbe(p ProbeFunc) Option {
	return func(r *Resolver) { r.probe = p }
}

// WithMaxProbes bounds the number of candidates examined per DecodeExact call.
func WithMaxProbes(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxProbes = n
		}
	}
}

// Resolver reconstructs original paths by probing the filesystem. Probe
// results are memoized for the lifetime of the Resolver; it is safe for
// concurrent use.
type Resolver struct {
	delim     string
	probe     ProbeFunc
	maxProbes int
	memo      *lru.Cache[string, bool]
}

func NewResolver(delim string, opts ...Option) *Resolver {
	if delim == "" {
		delim = DefaultDelimiter
	}
	memo, _ := lru.New[string, bool](defaultMemoSize)
	r := &Resolver{
		delim:     delim,
		probe:     isDir,
		maxProbes: DefaultMaxProbes,
		memo:      memo,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Resolver) Delimiter() string {
	return r.delim
}

// DecodeExact searches for the real directory that encoded stands for. It
// tries the shortest segment first at each position and backtracks to longer
// delimiter-joined segments when a branch dead-ends.
func (r *Resolver) DecodeExact(encoded string) Decoded {
	trimmed := strings.TrimPrefix(encoded, r.delim)
	if trimmed == "" {
		return Decoded{Path: "/", Exists: r.exists("/")}
	}

	tokens := strings.Split(trimmed, r.delim)
	budget := r.maxProbes
	if path, ok := r.search(tokens, 0, "", &budget); ok {
		return Decoded{Path: path, Exists: true}
	}
	return Decoded{Path: DecodeFast(encoded, r.delim), Exists: false}
}

func (r *Resolver) search(tokens []string, start int, prefix string, budget *int) (string, bool) {
	if start == len(tokens) {
		return prefix, true
	}

	for i := start; i < len(tokens); i++ {
		segment := strings.Join(tokens[start:i+1], r.delim)
		if segment == "" {
			continue
		}
		if *budget <= 0 {
			return "", false
		}
		*budget--

		candidate := prefix + "/" + segment
		if !r.exists(candidate) {
			continue
		}
		if i == len(tokens)-1 {
			return candidate, true
		}
		if path, ok := r.search(tokens, i+1, candidate, budget); ok {
			return path, true
		}
	}
	return "", false
}

func (r *Resolver) exists(path string) bool {
	if ok, hit := r.memo.Get(path); hit {
		return ok
	}
	ok := r.probe(path)
	r.memo.Add(path, ok)
	return ok
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
