package catalog

import "sort"

type ProjectStats struct {
	Name              string
	ConversationCount int
	MessageCount      int
	Tokens            TokenUsage
	Size              int64
}

type Stats struct {
	TotalProjects      int
	TotalConversations int
	TotalMessages      int
	TotalTokens        TokenUsage
	Projects           []ProjectStats // heaviest token users first
}

// Summarize aggregates message and token counts over a scan result.
func Summarize(result *ScanResult) Stats {
	var st Stats
	if result == nil {
		return st
	}

	for _, p := range result.Projects {
		ps := ProjectStats{
			Name:              p.Name,
			ConversationCount: p.TotalConversations,
			Size:              p.TotalSize,
		}
		for _, c := range p.Conversations {
			ps.MessageCount += c.MessageCount
			ps.Tokens.Add(c.TotalTokens)
		}
		st.TotalProjects++
		st.TotalConversations += ps.ConversationCount
		st.TotalMessages += ps.MessageCount
		st.TotalTokens.Add(ps.Tokens)
		st.Projects = append(st.Projects, ps)
	}

	sort.SliceStable(st.Projects, func(i, j int) bool {
		return st.Projects[i].Tokens.Total() > st.Projects[j].Tokens.Total()
	})
	return st
}
