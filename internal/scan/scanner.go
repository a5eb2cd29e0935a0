package scan

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Zuo-Peng/cconvo/internal/cache"
	"github.com/Zuo-Peng/cconvo/internal/catalog"
	"github.com/Zuo-Peng/cconvo/internal/parallel"
	"github.com/Zuo-Peng/cconvo/internal/parse"
	"github.com/Zuo-Peng/cconvo/internal/pathcodec"
)

const (
	DefaultProjectConcurrency = 10
	DefaultFileConcurrency    = 20

	logExt       = ".jsonl"
	subagentsDir = "subagents"
)

type ParseFunc func(path string) (parse.Meta, error)

type Option func(*Scanner)

func WithLogger(l *zap.Logger) Option {
	return func(s *Scanner) { s.logger = l }
}

func WithParser(fn ParseFunc) Option {
	return func(s *Scanner) { s.parse = fn }
}

func WithProjectConcurrency(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.projectLimit = n
		}
	}
}

func WithFileConcurrency(n int) Option {
	return func(s *Scanner) {
		if n > 0 {
			s.fileLimit = n
		}
	}
}

// Scanner builds the project catalog from a projects root. Unchanged log
// files are served from the metadata cache instead of being parsed again.
type Scanner struct {
	resolver     *pathcodec.Resolver
	cache        *cache.Cache
	parse        ParseFunc
	logger       *zap.Logger
	projectLimit int
	fileLimit    int
}

func New(resolver *pathcodec.Resolver, c *cache.Cache, opts ...Option) *Scanner {
	s := &Scanner{
		resolver:     resolver,
		cache:        c,
		parse:        parse.ParseMeta,
		logger:       zap.NewNop(),
		projectLimit: DefaultProjectConcurrency,
		fileLimit:    DefaultFileConcurrency,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// pass holds the counters of a single scan.
type pass struct {
	*Scanner
	hits   atomic.Int64
	misses atomic.Int64
}

// Scan lists every project directory under basePath. A missing basePath is
// an empty catalog, not an error.
func (s *Scanner) Scan(ctx context.Context, basePath string) (*catalog.ScanResult, error) {
	start := time.Now()
	s.cache.Load()
	defer s.cache.Save()

	basePath, err := filepath.Abs(basePath)
	if err != nil {
		return nil, err
	}

	entries, err := os.ReadDir(basePath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("read projects root %s: %w", basePath, err)
	}

	var names []string
	for _, e := range entries {
		if isDirOrSymlink(e, basePath) {
			names = append(names, e.Name())
		}
	}

	p := &pass{Scanner: s}
	projects, err := parallel.Map(ctx, names, s.projectLimit, func(ctx context.Context, name string) (catalog.Project, error) {
		return p.project(ctx, filepath.Join(basePath, name), name)
	})
	if err != nil {
		return nil, err
	}

	result := &catalog.ScanResult{}
	for _, proj := range projects {
		if proj.TotalConversations == 0 {
			continue
		}
		result.Projects = append(result.Projects, proj)
		result.TotalConversations += proj.TotalConversations
		result.TotalSize += proj.TotalSize
	}
	sort.SliceStable(result.Projects, func(i, j int) bool {
		a, b := result.Projects[i], result.Projects[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return a.EncodedPath < b.EncodedPath
	})

	s.logger.Info("scan complete",
		zap.String("root", basePath),
		zap.Int("projects", len(result.Projects)),
		zap.Int("conversations", result.TotalConversations),
		zap.Int64("cache_hits", p.hits.Load()),
		zap.Int64("cache_misses", p.misses.Load()),
		zap.Duration("duration", time.Since(start)),
	)
	return result, nil
}

// ScanProject builds one project from its directory. The cache must already
// be loaded; Scan does that.
func (s *Scanner) ScanProject(ctx context.Context, dirPath, encodedName string) (catalog.Project, error) {
	p := &pass{Scanner: s}
	return p.project(ctx, dirPath, encodedName)
}

func (p *pass) project(ctx context.Context, dirPath, encodedName string) (catalog.Project, error) {
	entries, err := os.ReadDir(dirPath)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return catalog.Project{}, fmt.Errorf("read project dir %s: %w", dirPath, err)
	}

	var files []string
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasSuffix(e.Name(), logExt) {
			files = append(files, e.Name())
		}
	}

	found, err := parallel.Map(ctx, files, p.fileLimit, func(_ context.Context, name string) (*catalog.ConversationSummary, error) {
		return p.conversation(dirPath, name)
	})
	if err != nil {
		return catalog.Project{}, err
	}

	var (
		conversations []catalog.ConversationSummary
		totalSize     int64
	)
	for _, c := range found {
		if c == nil {
			continue
		}
		conversations = append(conversations, *c)
		totalSize += c.FileSize
	}
	sort.SliceStable(conversations, func(i, j int) bool {
		return conversations[i].StartTime.After(conversations[j].StartTime)
	})

	decoded := p.resolver.DecodeExact(encodedName)
	p.logger.Debug("scanned project",
		zap.String("dir", dirPath),
		zap.String("original_path", decoded.Path),
		zap.Bool("exists", decoded.Exists),
		zap.Int("conversations", len(conversations)),
	)

	return catalog.Project{
		Name:               pathcodec.LeafName(decoded.Path, encodedName),
		EncodedPath:        encodedName,
		OriginalPath:       decoded.Path,
		DirPath:            dirPath,
		Conversations:      conversations,
		TotalConversations: len(conversations),
		TotalSize:          totalSize,
		IsDeleted:          !decoded.Exists,
	}, nil
}

// conversation returns nil for files that are not session logs or that
// disappeared after the directory was listed.
func (p *pass) conversation(dirPath, name string) (*catalog.ConversationSummary, error) {
	sessionID, ok := SessionID(name)
	if !ok {
		return nil, nil
	}

	path := filepath.Join(dirPath, name)
	info, err := os.Stat(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}

	mtime := info.ModTime().UnixMilli()
	entry, hit := p.cache.Get(path, mtime)
	if hit {
		p.hits.Add(1)
	} else {
		p.misses.Add(1)
		meta, err := p.parse(path)
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		entry = cache.Entry{
			Mtime:            mtime,
			Slug:             meta.Slug,
			StartTime:        meta.StartTime,
			EndTime:          meta.EndTime,
			MessageCount:     meta.MessageCount,
			TotalTokens:      meta.TotalTokens,
			FirstUserMessage: meta.FirstUserMessage,
		}
		p.cache.Set(path, entry)
	}

	return &catalog.ConversationSummary{
		SessionID:        sessionID,
		Slug:             entry.Slug,
		FilePath:         path,
		StartTime:        entry.StartTime,
		EndTime:          entry.EndTime,
		MessageCount:     entry.MessageCount,
		FileSize:         info.Size(),
		HasSubagents:     isDir(filepath.Join(dirPath, sessionID, subagentsDir)),
		Duration:         entry.EndTime.Sub(entry.StartTime),
		TotalTokens:      entry.TotalTokens,
		FirstUserMessage: entry.FirstUserMessage,
	}, nil
}

// SessionID extracts the session UUID from a log file name. Only the
// canonical 8-4-4-4-12 form is accepted.
func SessionID(fileName string) (string, bool) {
	if !strings.HasSuffix(fileName, logExt) {
		return "", false
	}
	id := strings.TrimSuffix(fileName, logExt)
	if len(id) != 36 || uuid.Validate(id) != nil {
		return "", false
	}
	return id, true
}

// isDirOrSymlink reports whether the entry is a directory or a symlink that
// resolves to one.
func isDirOrSymlink(entry os.DirEntry, parentDir string) bool {
	if entry.IsDir() {
		return true
	}
	if entry.Type()&os.ModeSymlink == 0 {
		return false
	}
	return isDir(filepath.Join(parentDir, entry.Name()))
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
