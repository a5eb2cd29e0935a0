package resolve

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/Zuo-Peng/cconvo/internal/catalog"
)

// MinPrefixLength is the shortest session id prefix accepted by
// FindConversation.
const MinPrefixLength = 4

var ErrPrefixTooShort = errors.New("session id prefix too short")

type Match struct {
	Project      *catalog.Project
	Conversation *catalog.ConversationSummary
}

type Candidate struct {
	SessionID   string
	ProjectName string
	StartTime   time.Time
}

// AmbiguousError is returned when a prefix matches more than one session.
type AmbiguousError struct {
	Prefix     string
	Candidates []Candidate
	Matches    []Match
}

func (e *AmbiguousError) Error() string {
	return fmt.Sprintf("session id prefix %q is ambiguous: %d sessions match", e.Prefix, len(e.Candidates))
}

// ValidatePrefix rejects prefixes that are too short to look up. Callers
// check it before scanning.
func ValidatePrefix(idOrPrefix string) error {
	if len(idOrPrefix) < MinPrefixLength {
		return fmt.Errorf("%w: %q has %d characters, need at least %d",
			ErrPrefixTooShort, idOrPrefix, len(idOrPrefix), MinPrefixLength)
	}
	return nil
}

// FindConversation looks a session up by full id or unique prefix. It
// returns nil, nil when nothing matches and an *AmbiguousError when more
// than one session does.
func FindConversation(idOrPrefix string, result *catalog.ScanResult) (*Match, error) {
	if err := ValidatePrefix(idOrPrefix); err != nil {
		return nil, err
	}
	if result == nil {
		return nil, nil
	}

	var matches []Match
	for i := range result.Projects {
		p := &result.Projects[i]
		for j := range p.Conversations {
			c := &p.Conversations[j]
			if hasPrefixFold(c.SessionID, idOrPrefix) {
				matches = append(matches, Match{Project: p, Conversation: c})
			}
		}
	}

	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return &matches[0], nil
	}

	amb := &AmbiguousError{Prefix: idOrPrefix, Matches: matches}
	for _, m := range matches {
		amb.Candidates = append(amb.Candidates, Candidate{
			SessionID:   m.Conversation.SessionID,
			ProjectName: m.Project.Name,
			StartTime:   m.Conversation.StartTime,
		})
	}
	return nil, amb
}

// hasPrefixFold is strings.HasPrefix ignoring case; log file names may carry
// upper-case ids.
func hasPrefixFold(s, prefix string) bool {
	return len(s) >= len(prefix) && strings.EqualFold(s[:len(prefix)], prefix)
}

// FindProjectByPath returns the project whose original path is cwd or the
// closest ancestor of cwd.
func FindProjectByPath(cwd string, result *catalog.ScanResult) (*catalog.Project, bool) {
	if result == nil {
		return nil, false
	}
	cwd = trimSeparators(cwd)

	var best *catalog.Project
	for i := range result.Projects {
		p := &result.Projects[i]
		root := trimSeparators(p.OriginalPath)
		if !within(cwd, root) {
			continue
		}
		if best == nil || len(root) > len(trimSeparators(best.OriginalPath)) {
			best = p
		}
	}
	return best, best != nil
}

// FindProject matches name case-insensitively against project names and
// original paths.
func FindProject(name string, result *catalog.ScanResult) (*catalog.Project, bool) {
	if result == nil || name == "" {
		return nil, false
	}
	needle := strings.ToLower(name)

	// an exact name wins over a substring hit
	for i := range result.Projects {
		if strings.ToLower(result.Projects[i].Name) == needle {
			return &result.Projects[i], true
		}
	}
	for i := range result.Projects {
		p := &result.Projects[i]
		if strings.Contains(strings.ToLower(p.Name), needle) ||
			strings.Contains(strings.ToLower(p.OriginalPath), needle) {
			return p, true
		}
	}
	return nil, false
}

// FilterProjects keeps the projects whose name or original path contains
// name, case-insensitively, and recomputes the totals. An empty name returns
// result unchanged.
func FilterProjects(name string, result *catalog.ScanResult) *catalog.ScanResult {
	if result == nil || name == "" {
		return result
	}
	needle := strings.ToLower(name)

	out := &catalog.ScanResult{}
	for _, p := range result.Projects {
		if !strings.Contains(strings.ToLower(p.Name), needle) &&
			!strings.Contains(strings.ToLower(p.OriginalPath), needle) {
			continue
		}
		out.Projects = append(out.Projects, p)
		out.TotalConversations += p.TotalConversations
		out.TotalSize += p.TotalSize
	}
	return out
}

func trimSeparators(p string) string {
	trimmed := strings.TrimRight(p, string(filepath.Separator))
	if trimmed == "" && p != "" {
		return string(filepath.Separator)
	}
	return trimmed
}

// within reports whether path is root or lies below it, comparing whole
// segments so /a/bc is not inside /a/b.
func within(path, root string) bool {
	if root == "" {
		return false
	}
	if path == root {
		return true
	}
	if root == string(filepath.Separator) {
		return strings.HasPrefix(path, root)
	}
	return strings.HasPrefix(path, root+string(filepath.Separator))
}
