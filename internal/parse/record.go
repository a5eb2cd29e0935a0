package parse

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/Zuo-Peng/cconvo/internal/catalog"
)

// Record is one line of a conversation log. The concrete type is one of
// *UserRecord, *AssistantRecord, *SummaryRecord, *SnapshotRecord or
// *UnknownRecord.
type Record interface {
	Kind() string
}

type UserRecord struct {
	UUID      string
	SessionID string
	Timestamp time.Time
	Cwd       string
	Slug      string
	IsMeta    bool
	Content   Content
}

type AssistantRecord struct {
	UUID      string
	Timestamp time.Time
	Model     string
	Usage     *catalog.TokenUsage
	Content   Content
}

type SummaryRecord struct {
	Summary  string
	LeafUUID string
}

type SnapshotRecord struct {
	MessageID string
}

type UnknownRecord struct {
	Type string
}

func (*UserRecord) Kind() string      { return "user" }
func (*AssistantRecord) Kind() string { return "assistant" }
func (*SummaryRecord) Kind() string   { return "summary" }
func (*SnapshotRecord) Kind() string  { return "file-history-snapshot" }
func (r *UnknownRecord) Kind() string { return r.Type }

// Content is message content, which the log stores either as a bare string
// or as an array of typed blocks.
type Content struct {
	Text   string // set when the content was a bare string
	Blocks []ContentBlock
}

type ContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

func (c *Content) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		c.Text = s
		return nil
	}
	// anything that is neither a string nor a block array is treated as empty
	var blocks []ContentBlock
	if err := json.Unmarshal(data, &blocks); err == nil {
		c.Blocks = blocks
	}
	return nil
}

func (c Content) IsString() bool {
	return c.Blocks == nil
}

// PlainText joins the text blocks, or returns the bare string.
func (c Content) PlainText() string {
	if c.IsString() {
		return c.Text
	}
	var parts []string
	for _, b := range c.Blocks {
		if b.Type == "text" {
			parts = append(parts, b.Text)
		}
	}
	return strings.Join(parts, "\n")
}

type rawRecord struct {
	Type      string `json:"type"`
	UUID      string `json:"uuid"`
	SessionID string `json:"sessionId"`
	Timestamp string `json:"timestamp"`
	Cwd       string `json:"cwd"`
	Slug      string `json:"slug"`
	IsMeta    bool   `json:"isMeta"`
	Summary   string `json:"summary"`
	LeafUUID  string `json:"leafUuid"`
	MessageID string `json:"messageId"`
	Message   *struct {
		Model   string              `json:"model"`
		Usage   *catalog.TokenUsage `json:"usage"`
		Content Content             `json:"content"`
	} `json:"message"`
}

// DecodeRecord decodes one log line into its variant. A field of the wrong
// type is left zero and the rest of the line is still used; only malformed
// JSON is an error.
func DecodeRecord(line []byte) (Record, error) {
	var raw rawRecord
	if err := json.Unmarshal(line, &raw); err != nil {
		var typeErr *json.UnmarshalTypeError
		if !errors.As(err, &typeErr) {
			return nil, err
		}
	}

	switch raw.Type {
	case "user":
		r := &UserRecord{
			UUID:      raw.UUID,
			SessionID: raw.SessionID,
			Timestamp: parseTimestamp(raw.Timestamp),
			Cwd:       raw.Cwd,
			Slug:      raw.Slug,
			IsMeta:    raw.IsMeta,
		}
		if raw.Message != nil {
			r.Content = raw.Message.Content
		}
		return r, nil
	case "assistant":
		r := &AssistantRecord{
			UUID:      raw.UUID,
			Timestamp: parseTimestamp(raw.Timestamp),
		}
		if raw.Message != nil {
			r.Model = raw.Message.Model
			r.Usage = raw.Message.Usage
			r.Content = raw.Message.Content
		}
		return r, nil
	case "summary":
		return &SummaryRecord{Summary: raw.Summary, LeafUUID: raw.LeafUUID}, nil
	case "file-history-snapshot":
		return &SnapshotRecord{MessageID: raw.MessageID}, nil
	default:
		return &UnknownRecord{Type: raw.Type}, nil
	}
}

func parseTimestamp(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	// try RFC3339
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t
	}
	// try RFC3339Nano
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	// try ISO8601 without timezone
	if t, err := time.Parse("2006-01-02T15:04:05", s); err == nil {
		return t
	}
	return time.Time{}
}
