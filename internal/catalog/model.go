package catalog

import "time"

type TokenUsage struct {
	InputTokens              int64 `json:"input_tokens"`
	OutputTokens             int64 `json:"output_tokens"`
	CacheCreationInputTokens int64 `json:"cache_creation_input_tokens,omitempty"`
	CacheReadInputTokens     int64 `json:"cache_read_input_tokens,omitempty"`
}

func (u *TokenUsage) Add(o TokenUsage) {
	u.InputTokens += o.InputTokens
	u.OutputTokens += o.OutputTokens
	u.CacheCreationInputTokens += o.CacheCreationInputTokens
	u.CacheReadInputTokens += o.CacheReadInputTokens
}

func (u TokenUsage) Total() int64 {
	return u.InputTokens + u.OutputTokens + u.CacheCreationInputTokens + u.CacheReadInputTokens
}

type ConversationSummary struct {
	SessionID        string
	Slug             string
	FilePath         string
	StartTime        time.Time
	EndTime          time.Time
	MessageCount     int
	FileSize         int64
	HasSubagents     bool
	Duration         time.Duration
	TotalTokens      TokenUsage
	FirstUserMessage string
}

type Project struct {
	Name               string // leaf of OriginalPath
	EncodedPath        string // directory name under the projects root
	OriginalPath       string
	DirPath            string
	Conversations      []ConversationSummary // newest first
	TotalConversations int
	TotalSize          int64
	IsDeleted          bool // OriginalPath could not be found on disk
}

type ScanResult struct {
	Projects           []Project // sorted by Name
	TotalConversations int
	TotalSize          int64
}
