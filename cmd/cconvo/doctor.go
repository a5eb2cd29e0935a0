package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/Zuo-Peng/cconvo/internal/config"
)

func doctorCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "doctor",
		Short: "Self-check: verify the projects root and cache, and show stats",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := setup(flags)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			defer e.Close()

			home, _ := os.UserHomeDir()
			fmt.Println("=== Config ===")
			checkFile("File", config.Path(home))
			fmt.Printf("  Delimiter: %q\n", e.cfg.Delimiter)
			fmt.Printf("  Concurrency: %d projects, %d files\n", e.cfg.ProjectConcurrency, e.cfg.FileConcurrency)

			fmt.Println("\n=== Roots ===")
			checkDir("Projects", e.cfg.ProjectsRoot)

			fmt.Println("\n=== Cache ===")
			fmt.Printf("  Backend: %s\n", e.cfg.CacheBackend)
			checkFile("Path", e.cfg.CachePath)
			e.cache.Load()
			fmt.Printf("  Entries before scan: %d\n", e.cache.Len())

			fmt.Println("\n=== Scan ===")
			start := time.Now()
			result, err := e.scan(cmd.Context())
			if err != nil {
				fmt.Printf("  scan error: %v\n", err)
				return nil
			}
			deleted := 0
			for _, p := range result.Projects {
				if p.IsDeleted {
					deleted++
				}
			}
			fmt.Printf("  Projects:      %d (%d with deleted directories)\n", len(result.Projects), deleted)
			fmt.Printf("  Conversations: %d\n", result.TotalConversations)
			fmt.Printf("  Log size:      %s\n", formatSize(result.TotalSize))
			fmt.Printf("  Entries after: %d\n", e.cache.Len())
			fmt.Printf("  Took:          %s\n", time.Since(start).Round(time.Millisecond))

			if info, err := os.Stat(e.cfg.CachePath); err == nil {
				fmt.Printf("\n=== Cache Size: %s ===\n", formatSize(info.Size()))
			}
			return nil
		},
	}
}

func checkDir(name, path string) {
	if info, err := os.Stat(path); err != nil {
		fmt.Printf("  %s: %s (NOT FOUND)\n", name, path)
	} else if !info.IsDir() {
		fmt.Printf("  %s: %s (NOT A DIRECTORY)\n", name, path)
	} else {
		fmt.Printf("  %s: %s (OK)\n", name, path)
	}
}

func checkFile(name, path string) {
	if _, err := os.Stat(path); err != nil {
		fmt.Printf("  %s: %s (not present)\n", name, path)
	} else {
		fmt.Printf("  %s: %s (OK)\n", name, path)
	}
}
