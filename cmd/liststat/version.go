package main

import (
	"fmt"
	"runtime"
	"runtime/debug"

	"github.com/spf13/cobra"
)

// Version information set at build time via ldflags.
var (
	version = ""
	commit  = ""
	date    = ""
)

// buildInfo describes the running binary.
type buildInfo struct {
	Version string
	Commit  string
	Date    string
}

// readBuildInfo resolves version details.
// Priority: ldflags > debug.ReadBuildInfo > placeholder.
func readBuildInfo() buildInfo {
	info := buildInfo{Version: version, Commit: commit, Date: date}

	if bi, ok := debug.ReadBuildInfo(); ok {
		if info.Version == "" && bi.Main.Version != "" {
			info.Version = bi.Main.Version
		}
		for _, setting := range bi.Settings {
			switch setting.Key {
			case "vcs.revision":
				if info.Commit == "" {
					info.Commit = setting.Value
					if len(info.Commit) > 7 {
						info.Commit = info.Commit[:7]
					}
				}
			case "vcs.time":
				if info.Date == "" {
					info.Date = setting.Value
				}
			}
		}
	}

	if info.Version == "" {
		info.Version = "(devel)"
	}
	if info.Commit == "" {
		info.Commit = "unknown"
	}
	if info.Date == "" {
		info.Date = "unknown"
	}
	return info
}

// getVersion returns the version string.
func getVersion() string {
	return readBuildInfo().Version
}

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Long:  `Print the version, commit hash, build date and Go version of liststat.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			short, err := cmd.Flags().GetBool("short")
			if err != nil {
				return err
			}

			info := readBuildInfo()
			out := cmd.OutOrStdout()
			if short {
				fmt.Fprintln(out, info.Version)
				return nil
			}

			fmt.Fprintf(out, "liststat version %s\n", info.Version)
			fmt.Fprintf(out, "  commit: %s\n", info.Commit)
			fmt.Fprintf(out, "  built:  %s\n", info.Date)
			fmt.Fprintf(out, "  go:     %s\n", runtime.Version())
			return nil
		},
	}

	cmd.Flags().BoolP("short", "s", false, "Print the version number only")

	return cmd
}
