package main

import (
	"fmt"
	"strings"

	"github.com/httprunner/adbcleanup/internal/cleanup"
	"github.com/spf13/cobra"
)

func newTargetsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "targets",
		Short: "Print the effective cleanup targets and the adb command for each",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			targets := runCfg.Targets
			sections := []struct {
				title   string
				items   []string
				command func(string) []string
			}{
				{"secure settings", targets.Settings(), cleanup.SettingCommand},
				{"system files (su)", targets.Files(), cleanup.RemoveCommand},
				{"packages", targets.Packages(), cleanup.ClearCommand},
			}
			for _, s := range sections {
				fmt.Fprintf(out, "%s (%d):\n", s.title, len(s.items))
				for _, item := range s.items {
					fmt.Fprintf(out, "  adb -s <serial> %s\n", strings.Join(s.command(item), " "))
				}
			}
			fmt.Fprintf(out, "%d commands per device\n", targets.Count())
			return nil
		},
	}
}
