package scan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/Zuo-Peng/cconvo/internal/cache"
	"github.com/Zuo-Peng/cconvo/internal/parse"
	"github.com/Zuo-Peng/cconvo/internal/pathcodec"
)

const (
	idOld    = "11111111-1111-4111-8111-111111111111"
	idNew    = "22222222-2222-4222-8222-222222222222"
	idOther  = "33333333-3333-4333-8333-333333333333"
	idGone   = "44444444-4444-4444-8444-444444444444"
	idUpper  = "ABCDEF00-1234-4ABC-9DEF-0123456789AB"
	testTime = "2025-03-01T10:00:00Z"
)

type fixture struct {
	root     string // holds the original working directories
	projects string // the projects root being scanned
	cache    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	base := t.TempDir()
	f := &fixture{
		root:     filepath.Join(base, "work"),
		projects: filepath.Join(base, "projects"),
		cache:    filepath.Join(base, "cache.json"),
	}
	require.NoError(t, os.MkdirAll(f.root, 0o755))
	require.NoError(t, os.MkdirAll(f.projects, 0o755))
	return f
}

// project creates the project directory for an original path below f.root.
// When live is false the original directory is not created.
func (f *fixture) project(t *testing.T, rel string, live bool) string {
	t.Helper()
	original := filepath.Join(f.root, rel)
	if live {
		require.NoError(t, os.MkdirAll(original, 0o755))
	}
	dir := filepath.Join(f.projects, pathcodec.Encode(original, "-"))
	require.NoError(t, os.MkdirAll(dir, 0o755))
	return dir
}

func writeSession(t *testing.T, dir, name, ts string) string {
	t.Helper()
	content := fmt.Sprintf(
		`{"type":"user","slug":"s-%[1]s","timestamp":%[2]q,"message":{"role":"user","content":"hello from %[1]s"}}`+"\n"+
			`{"type":"assistant","timestamp":%[2]q,"message":{"role":"assistant","content":[],"usage":{"input_tokens":10,"output_tokens":5}}}`+"\n",
		name, ts)
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func (f *fixture) scanner(t *testing.T, opts ...Option) (*Scanner, *cache.Cache) {
	c := cache.New(cache.NewFileStore(f.cache))
	opts = append([]Option{WithLogger(zaptest.NewLogger(t))}, opts...)
	return New(pathcodec.NewResolver("-"), c, opts...), c
}

func TestScan_BuildsCatalog(t *testing.T) {
	f := newFixture(t)

	app := f.project(t, "my-app", true)
	writeSession(t, app, idOld+".jsonl", "2025-03-01T09:00:00Z")
	writeSession(t, app, idNew+".jsonl", "2025-03-02T09:00:00Z")
	writeSession(t, app, "not-a-uuid.jsonl", testTime)
	writeSession(t, app, idOther+".txt", testTime)
	require.NoError(t, os.MkdirAll(filepath.Join(app, idNew, "subagents"), 0o755))

	tools := f.project(t, "alpha/tools", true)
	writeSession(t, tools, idUpper+".jsonl", testTime)

	// a project without sessions is dropped
	f.project(t, "empty", true)

	s, _ := f.scanner(t)
	result, err := s.Scan(context.Background(), f.projects)
	require.NoError(t, err)

	require.Len(t, result.Projects, 2)
	assert.Equal(t, 3, result.TotalConversations)

	assert.Equal(t, "my-app", result.Projects[0].Name)
	assert.Equal(t, "tools", result.Projects[1].Name)

	p := result.Projects[0]
	assert.Equal(t, filepath.Join(f.root, "my-app"), p.OriginalPath)
	assert.Equal(t, app, p.DirPath)
	assert.False(t, p.IsDeleted)
	require.Len(t, p.Conversations, 2)
	assert.Equal(t, idNew, p.Conversations[0].SessionID, "newest first")
	assert.Equal(t, idOld, p.Conversations[1].SessionID)
	assert.True(t, p.Conversations[0].HasSubagents)
	assert.False(t, p.Conversations[1].HasSubagents)

	c := p.Conversations[0]
	assert.Equal(t, "s-"+idNew+".jsonl", c.Slug)
	assert.Equal(t, 2, c.MessageCount)
	assert.Equal(t, int64(15), c.TotalTokens.Total())
	assert.Equal(t, "hello from "+idNew+".jsonl", c.FirstUserMessage)
	assert.Equal(t, filepath.Join(app, idNew+".jsonl"), c.FilePath)

	info, err := os.Stat(c.FilePath)
	require.NoError(t, err)
	assert.Equal(t, info.Size(), c.FileSize)
	assert.Equal(t, p.Conversations[0].FileSize+p.Conversations[1].FileSize, p.TotalSize)
	assert.Equal(t, p.TotalSize+result.Projects[1].TotalSize, result.TotalSize)

	assert.Equal(t, idUpper, result.Projects[1].Conversations[0].SessionID)
}

func TestScan_MissingBaseIsEmpty(t *testing.T) {
	f := newFixture(t)
	s, _ := f.scanner(t)

	result, err := s.Scan(context.Background(), filepath.Join(f.projects, "does-not-exist"))
	require.NoError(t, err)
	assert.Empty(t, result.Projects)
	assert.Zero(t, result.TotalConversations)
}

func TestScan_DeletedProjectKeepsConversations(t *testing.T) {
	f := newFixture(t)
	dir := f.project(t, "old-service", true)
	writeSession(t, dir, idGone+".jsonl", testTime)

	s, _ := f.scanner(t)
	before, err := s.Scan(context.Background(), f.projects)
	require.NoError(t, err)
	require.Len(t, before.Projects, 1)
	require.False(t, before.Projects[0].IsDeleted)

	require.NoError(t, os.RemoveAll(filepath.Join(f.root, "old-service")))

	s, _ = f.scanner(t)
	after, err := s.Scan(context.Background(), f.projects)
	require.NoError(t, err)
	require.Len(t, after.Projects, 1)

	p := after.Projects[0]
	assert.True(t, p.IsDeleted)
	assert.Equal(t, pathcodec.DecodeFast(p.EncodedPath, "-"), p.OriginalPath)
	require.Len(t, p.Conversations, 1)
	assert.Equal(t, idGone, p.Conversations[0].SessionID)
	assert.Equal(t, before.Projects[0].Conversations[0].MessageCount, p.Conversations[0].MessageCount)
}

func TestScan_CacheAvoidsReparse(t *testing.T) {
	f := newFixture(t)
	dir := f.project(t, "svc", true)
	path := writeSession(t, dir, idOld+".jsonl", testTime)
	writeSession(t, dir, idNew+".jsonl", testTime)

	var calls atomic.Int64
	counting := WithParser(func(p string) (parse.Meta, error) {
		calls.Add(1)
		return parse.ParseMeta(p)
	})

	s, _ := f.scanner(t, counting)
	_, err := s.Scan(context.Background(), f.projects)
	require.NoError(t, err)
	assert.Equal(t, int64(2), calls.Load())

	// a fresh cache instance reads what the first scan saved
	s, _ = f.scanner(t, counting)
	second, err := s.Scan(context.Background(), f.projects)
	require.NoError(t, err)
	assert.Equal(t, int64(2), calls.Load())
	assert.Equal(t, 2, second.TotalConversations)

	later := time.Now().Add(time.Hour)
	require.NoError(t, os.Chtimes(path, later, later))

	s, _ = f.scanner(t, counting)
	_, err = s.Scan(context.Background(), f.projects)
	require.NoError(t, err)
	assert.Equal(t, int64(3), calls.Load(), "only the touched file is parsed again")
}

func TestScan_ParseErrorAborts(t *testing.T) {
	f := newFixture(t)
	dir := f.project(t, "svc", true)
	writeSession(t, dir, idOld+".jsonl", testTime)

	boom := errors.New("device error")
	s, _ := f.scanner(t, WithParser(func(string) (parse.Meta, error) {
		return parse.Meta{}, boom
	}))

	_, err := s.Scan(context.Background(), f.projects)
	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), idOld)
}

func TestScan_UnreadableProjectDirAborts(t *testing.T) {
	if os.Geteuid() == 0 {
		t.Skip("permission bits are not enforced for root")
	}
	f := newFixture(t)
	dir := f.project(t, "locked", true)
	writeSession(t, dir, idOld+".jsonl", testTime)
	require.NoError(t, os.Chmod(dir, 0o000))
	t.Cleanup(func() { os.Chmod(dir, 0o755) })

	s, _ := f.scanner(t)
	_, err := s.Scan(context.Background(), f.projects)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrPermission)
}

func TestScan_VanishedProjectDirIsEmpty(t *testing.T) {
	f := newFixture(t)
	s, c := f.scanner(t)
	c.Load()

	p, err := s.ScanProject(context.Background(), filepath.Join(f.projects, "-nowhere"), "-nowhere")
	require.NoError(t, err)
	assert.Zero(t, p.TotalConversations)
	assert.True(t, p.IsDeleted)
	assert.Equal(t, "nowhere", p.Name)
}

func TestScan_SameLeafNameOrderedByEncodedPath(t *testing.T) {
	f := newFixture(t)
	a := f.project(t, "a/api", true)
	b := f.project(t, "b/api", true)
	writeSession(t, b, idOld+".jsonl", testTime)
	writeSession(t, a, idNew+".jsonl", testTime)

	s, _ := f.scanner(t, WithProjectConcurrency(1), WithFileConcurrency(1))
	result, err := s.Scan(context.Background(), f.projects)
	require.NoError(t, err)
	require.Len(t, result.Projects, 2)
	assert.Equal(t, filepath.Join(f.root, "a", "api"), result.Projects[0].OriginalPath)
	assert.Equal(t, filepath.Join(f.root, "b", "api"), result.Projects[1].OriginalPath)
}

func TestSessionID(t *testing.T) {
	id, ok := SessionID("550e8400-e29b-41d4-a716-446655440000.jsonl")
	assert.True(t, ok)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000", id)

	_, ok = SessionID("550E8400-E29B-41D4-A716-446655440000.jsonl")
	assert.True(t, ok)

	for _, name := range []string{
		"not-a-uuid.jsonl",
		"conversation.jsonl",
		"550e8400e29b41d4a716446655440000.jsonl",
		"{550e8400-e29b-41d4-a716-446655440000}.jsonl",
		"550e8400-e29b-41d4-a716-446655440000.json",
		"agent-550e8400.jsonl",
	} {
		_, ok := SessionID(name)
		assert.False(t, ok, name)
	}
}

func TestScan_OversizedLineDoesNotAbort(t *testing.T) {
	f := newFixture(t)

	good := f.project(t, "good", true)
	writeSession(t, good, idOld+".jsonl", testTime)

	bad := f.project(t, "bad", true)
	path := writeSession(t, bad, idNew+".jsonl", testTime)
	huge := `{"type":"user","message":{"role":"user","content":"` + strings.Repeat("x", 11<<20) + `"}}` + "\n"
	fh, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = fh.WriteString(huge)
	require.NoError(t, err)
	require.NoError(t, fh.Close())

	s, _ := f.scanner(t)
	result, err := s.Scan(context.Background(), f.projects)
	require.NoError(t, err)
	require.Len(t, result.Projects, 2)
	assert.Equal(t, "bad", result.Projects[0].Name)
	assert.Equal(t, "good", result.Projects[1].Name)
	assert.Equal(t, 2, result.Projects[0].Conversations[0].MessageCount)
}
