package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/cconvo/internal/catalog"
	"github.com/Zuo-Peng/cconvo/internal/resolve"
)

const previewWidth = 60

func showCmd(flags *globalFlags) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "show [project]",
		Short: "List the conversations of a project, newest first",
		Long: `Lists the conversations of a project. The project is matched by name or
path; without an argument the project of the current directory is shown.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(flags)
			if err != nil {
				return err
			}
			defer e.Close()

			result, err := e.scan(cmd.Context())
			if err != nil {
				return err
			}

			var (
				p  *catalog.Project
				ok bool
			)
			if len(args) == 1 {
				p, ok = resolve.FindProject(args[0], result)
				if !ok {
					return fmt.Errorf("no project matches %q", args[0])
				}
			} else {
				cwd, err := os.Getwd()
				if err != nil {
					return err
				}
				p, ok = resolve.FindProjectByPath(cwd, result)
				if !ok {
					return fmt.Errorf("no conversations recorded for %s", cwd)
				}
			}

			conversations := p.Conversations
			if limit > 0 && len(conversations) > limit {
				conversations = conversations[:limit]
			}

			rows := make([][]string, 0, len(conversations))
			for _, c := range conversations {
				rows = append(rows, conversationRow(c))
			}
			writeTable(os.Stdout, stdoutIsTerminal(),
				[]string{"SESSION", "STARTED", "DURATION", "MSGS", "TOKENS", "SIZE", "FIRST MESSAGE"},
				rows, nil)

			state := ""
			if p.IsDeleted {
				state = " (directory deleted)"
			}
			fmt.Fprintf(os.Stderr, "%s: %s%s, %d of %d sessions\n",
				p.Name, p.OriginalPath, state, len(conversations), p.TotalConversations)
			return nil
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 0, "Max conversations (0 = no limit)")
	return cmd
}

func conversationRow(c catalog.ConversationSummary) []string {
	id := c.SessionID
	if c.HasSubagents {
		id += "*"
	}
	return []string{
		id,
		formatTime(c.StartTime),
		formatDuration(c.Duration),
		strconv.Itoa(c.MessageCount),
		formatCount(c.TotalTokens.Total()),
		formatSize(c.FileSize),
		oneLine(c.FirstUserMessage, previewWidth),
	}
}
