package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func findCmd(flags *globalFlags) *cobra.Command {
	var pathOnly bool

	cmd := &cobra.Command{
		Use:   "find <session-id-prefix>",
		Short: "Resolve a session id or unique prefix to its log file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(flags)
			if err != nil {
				return err
			}
			defer e.Close()

			m, err := e.lookup(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			if pathOnly {
				fmt.Println(m.Conversation.FilePath)
				return nil
			}

			c := m.Conversation
			fmt.Printf("Session:  %s\n", c.SessionID)
			if c.Slug != "" {
				fmt.Printf("Slug:     %s\n", c.Slug)
			}
			fmt.Printf("Project:  %s (%s)\n", m.Project.Name, m.Project.OriginalPath)
			fmt.Printf("File:     %s\n", c.FilePath)
			fmt.Printf("Started:  %s (%s)\n", formatTime(c.StartTime), formatAgo(c.StartTime))
			fmt.Printf("Duration: %s\n", formatDuration(c.Duration))
			fmt.Printf("Messages: %d\n", c.MessageCount)
			fmt.Printf("Tokens:   %s in, %s out, %s cache read, %s cache write\n",
				formatCount(c.TotalTokens.InputTokens),
				formatCount(c.TotalTokens.OutputTokens),
				formatCount(c.TotalTokens.CacheReadInputTokens),
				formatCount(c.TotalTokens.CacheCreationInputTokens),
			)
			fmt.Printf("Size:     %s\n", formatSize(c.FileSize))
			if c.HasSubagents {
				fmt.Println("Subagents: yes")
			}
			if c.FirstUserMessage != "" {
				fmt.Printf("First:    %s\n", c.FirstUserMessage)
			}
			if m.Project.IsDeleted {
				fmt.Fprintln(os.Stderr, "note: the project directory no longer exists")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&pathOnly, "path", false, "Print only the log file path")
	return cmd
}
