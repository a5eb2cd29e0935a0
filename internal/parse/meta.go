package parse

import (
	"bufio"
	"bytes"
	"errors"
	"io"
	"os"
	"time"

	"github.com/Zuo-Peng/cconvo/internal/catalog"
)

// maxLineSize caps a single log line; longer lines are skipped.
const maxLineSize = 10 * 1024 * 1024 // 10MB
const maxPreviewRunes = 100

type Meta struct {
	Slug             string
	StartTime        time.Time
	EndTime          time.Time
	MessageCount     int
	TotalTokens      catalog.TokenUsage
	FirstUserMessage string
}

// ParseMeta makes a single pass over a conversation log and extracts the
// fields needed for listing. Lines that are not valid JSON or exceed
// maxLineSize are skipped.
func ParseMeta(filePath string) (Meta, error) {
	var meta Meta

	f, err := os.Open(filePath)
	if err != nil {
		return meta, err
	}
	defer f.Close()

	r := bufio.NewReaderSize(f, 64*1024)
	var (
		line     []byte
		oversize bool
	)
	for {
		chunk, err := r.ReadSlice('\n')
		if !oversize && len(line)+len(chunk) <= maxLineSize {
			line = append(line, chunk...)
		} else {
			// lines past the cap are dropped like unparsable ones
			oversize = true
			line = line[:0]
		}
		if errors.Is(err, bufio.ErrBufferFull) {
			continue
		}
		if err != nil && !errors.Is(err, io.EOF) {
			return meta, err
		}

		if !oversize {
			meta.consume(line)
		}
		line, oversize = line[:0], false
		if err != nil {
			break
		}
	}

	// a log without any timestamped message still needs a place in the ordering
	now := time.Now()
	if meta.StartTime.IsZero() {
		meta.StartTime = now
	}
	if meta.EndTime.IsZero() {
		meta.EndTime = now
	}
	return meta, nil
}

func (m *Meta) consume(line []byte) {
	if len(bytes.TrimSpace(line)) == 0 {
		return
	}
	rec, err := DecodeRecord(line)
	if err != nil {
		return
	}
	m.MessageCount++

	switch r := rec.(type) {
	case *UserRecord:
		m.observe(r.Timestamp)
		if m.Slug == "" && r.Slug != "" {
			m.Slug = r.Slug
		}
		if m.FirstUserMessage == "" && isRealUserInput(r) {
			if cleaned := cleanUserInput(r.Content.PlainText()); cleaned != "" {
				m.FirstUserMessage = truncateRunes(cleaned, maxPreviewRunes)
			}
		}
	case *AssistantRecord:
		m.observe(r.Timestamp)
		if r.Usage != nil {
			m.TotalTokens.Add(*r.Usage)
		}
	}
}

func (m *Meta) observe(ts time.Time) {
	if ts.IsZero() {
		return
	}
	if m.StartTime.IsZero() || ts.Before(m.StartTime) {
		m.StartTime = ts
	}
	if m.EndTime.IsZero() || ts.After(m.EndTime) {
		m.EndTime = ts
	}
}

func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
