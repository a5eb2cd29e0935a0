package main

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/cconvo/internal/catalog"
	"github.com/Zuo-Peng/cconvo/internal/resolve"
)

func listCmd(flags *globalFlags) *cobra.Command {
	var (
		hideDeleted bool
		project     string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List projects with conversation counts and sizes",
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

			projects := listedProjects(result, project, hideDeleted)
			if len(projects) == 0 {
				if project != "" {
					fmt.Fprintf(os.Stderr, "No projects matching %q\n", project)
				} else {
					fmt.Fprintf(os.Stderr, "No projects found under %s\n", e.cfg.ProjectsRoot)
				}
				return nil
			}

			var (
				sessions int
				size     int64
			)
			rows := make([][]string, 0, len(projects))
			for _, p := range projects {
				sessions += p.TotalConversations
				size += p.TotalSize
				rows = append(rows, []string{
					p.Name,
					strconv.Itoa(p.TotalConversations),
					formatSize(p.TotalSize),
					formatAgo(lastActive(p)),
					p.OriginalPath,
				})
			}
			writeTable(os.Stdout, stdoutIsTerminal(),
				[]string{"PROJECT", "SESSIONS", "SIZE", "ACTIVE", "PATH"},
				rows,
				func(i int) bool { return projects[i].IsDeleted },
			)
			fmt.Fprintf(os.Stderr, "%d projects, %d sessions, %s\n",
				len(projects), sessions, formatSize(size))
			return nil
		},
	}

	cmd.Flags().BoolVar(&hideDeleted, "hide-deleted", false, "Skip projects whose directory no longer exists")
	cmd.Flags().StringVarP(&project, "project", "p", "", "Filter by project name or path")
	return cmd
}

// listedProjects applies the --project and --hide-deleted filters.
func listedProjects(result *catalog.ScanResult, project string, hideDeleted bool) []catalog.Project {
	var projects []catalog.Project
	for _, p := range resolve.FilterProjects(project, result).Projects {
		if p.IsDeleted && hideDeleted {
			continue
		}
		projects = append(projects, p)
	}
	return projects
}

// lastActive is the end time of the newest conversation.
func lastActive(p catalog.Project) time.Time {
	var last time.Time
	for _, c := range p.Conversations {
		if c.EndTime.After(last) {
			last = c.EndTime
		}
	}
	return last
}
