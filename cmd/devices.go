package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/httprunner/adbcleanup/internal/agent/device"
	"github.com/httprunner/adbcleanup/internal/bridge"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var headerStyle = lipgloss.NewStyle().Bold(true).Padding(0, 1)
var cellStyle = lipgloss.NewStyle().Padding(0, 1)

func newDevicesCmd() *cobra.Command {
	var flagProbe, flagIDs bool

	cmd := &cobra.Command{
		Use:   "devices",
		Short: "List connected devices and whether cleanup can run on them",
		Long:  "Queries adb once and prints every device with its state; with --probe, ready devices are also asked for model, Android version and su availability, and with --ids the identifiers the cleanup resets are read back without changing them.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			b := newBridge(runCfg)
			if err := b.Check(ctx); err != nil {
				return err
			}
			entries, err := b.Devices(ctx)
			if err != nil {
				return err
			}
			if len(entries) == 0 {
				log.Warn().Msg("no devices attached")
				return nil
			}

			rows := make([][]string, 0, len(entries))
			for _, entry := range entries {
				meta := device.Meta{Serial: entry.Serial, State: entry.State}
				if flagProbe {
					meta = device.Describe(ctx, b, entry)
				}
				row := []string{
					meta.Serial, meta.State, readyLabel(entry),
					orDash(meta.Model), orDash(meta.OSVersion), orDash(meta.SDK), orDash(meta.IsRoot),
				}
				if flagIDs {
					ids := device.Identify(ctx, b, entry)
					row = append(row,
						orDash(ids.AndroidID), orDash(ids.SerialNo), orDash(ids.IMEI),
						orDash(ids.WiFiMAC), orDash(ids.BluetoothMAC))
				}
				rows = append(rows, row)
			}
			headers := []string{"SERIAL", "STATE", "CLEANUP", "MODEL", "ANDROID", "SDK", "ROOT"}
			if flagIDs {
				headers = append(headers, "ANDROID_ID", "SERIALNO", "IMEI", "WIFI_MAC", "BT_MAC")
			}
			t := table.New().
				Border(lipgloss.NormalBorder()).
				StyleFunc(func(row, col int) lipgloss.Style {
					if row == table.HeaderRow {
						return headerStyle
					}
					return cellStyle
				}).
				Headers(headers...).
				Rows(rows...)
			fmt.Fprintln(cmd.OutOrStdout(), t.String())
			return nil
		},
	}
	cmd.Flags().BoolVar(&flagProbe, "probe", false, "probe model, Android version and root on ready devices")
	cmd.Flags().BoolVar(&flagIDs, "ids", false, "read android_id, serial number, IMEI and MAC addresses on ready devices")
	return cmd
}

func readyLabel(entry bridge.Entry) string {
	if entry.Ready() {
		return "ready"
	}
	return "skipped"
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
