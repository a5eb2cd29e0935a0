package main

import (
	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/cconvo/internal/open"
)

func openCmd(flags *globalFlags) *cobra.Command {
	var line int
	var end bool

	cmd := &cobra.Command{
		Use:   "open <session-id-prefix>",
		Short: "Open a conversation log in $EDITOR",
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

			path := m.Conversation.FilePath
			if end {
				if line, err = open.LastLine(path); err != nil {
					return err
				}
			}
			return open.Conversation(path, line)
		},
	}

	cmd.Flags().IntVar(&line, "line", 1, "Line to jump to")
	cmd.Flags().BoolVar(&end, "end", false, "Jump to the last record")
	return cmd
}
