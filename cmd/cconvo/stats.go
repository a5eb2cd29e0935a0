package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/cconvo/internal/catalog"
	"github.com/Zuo-Peng/cconvo/internal/resolve"
)

func statsCmd(flags *globalFlags) *cobra.Command {
	var (
		top     int
		project string
	)

	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show message and token totals per project",
		Args:  cobra.NoArgs,
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

			result = resolve.FilterProjects(project, result)
			if len(result.Projects) == 0 && project != "" {
				fmt.Fprintf(os.Stderr, "No projects matching %q\n", project)
				return nil
			}

			st := catalog.Summarize(result)
			projects := st.Projects
			if top > 0 && len(projects) > top {
				projects = projects[:top]
			}

			rows := make([][]string, 0, len(projects))
			for _, p := range projects {
				rows = append(rows, []string{
					p.Name,
					strconv.Itoa(p.ConversationCount),
					formatCount(int64(p.MessageCount)),
					formatCount(p.Tokens.InputTokens),
					formatCount(p.Tokens.OutputTokens),
					formatCount(p.Tokens.CacheReadInputTokens + p.Tokens.CacheCreationInputTokens),
					formatCount(p.Tokens.Total()),
				})
			}
			writeTable(os.Stdout, stdoutIsTerminal(),
				[]string{"PROJECT", "SESSIONS", "MSGS", "INPUT", "OUTPUT", "CACHE", "TOTAL"},
				rows, nil)

			fmt.Fprintf(os.Stderr, "%d projects, %d sessions, %s messages, %s tokens\n",
				st.TotalProjects, st.TotalConversations,
				formatCount(int64(st.TotalMessages)), formatCount(st.TotalTokens.Total()))
			return nil
		},
	}

	cmd.Flags().IntVar(&top, "top", 0, "Show only the N heaviest projects (0 = all)")
	cmd.Flags().StringVarP(&project, "project", "p", "", "Filter by project name or path")
	return cmd
}
