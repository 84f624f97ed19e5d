package cmd

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"firestige.xyz/ifmon/internal/sink/history"
	"firestige.xyz/ifmon/internal/stats"
)

var historyLimit int

// historyCmd lists sessions recorded by the history output.
var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List monitoring sessions stored in the history database",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		rows, err := history.ListSessions(cmd.Context(), cfg.Outputs.History.Path, historyLimit)
		if err != nil {
			return err
		}
		printSessions(cmd.OutOrStdout(), rows)
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 20, "maximum number of sessions to show")
}

const historyFormat = "%-6s %-20s %-16s %-10s %-12s %-12s %-14s %-12s %-8s\n"

func printSessions(w io.Writer, rows []history.SessionRow) {
	fmt.Fprintf(w, historyFormat, "ID", "Started", "Interface", "Duration", "Packets", "Bytes", "Avg bytes/s", "Avg pps", "Windows")
	for _, r := range rows {
		avgBPS, avgPPS := "n/a", "n/a"
		if r.AvgBPS.Valid {
			avgBPS = stats.FormatByteRate(r.AvgBPS.Float64)
		}
		if r.AvgPPS.Valid {
			avgPPS = stats.FormatPacketRate(r.AvgPPS.Float64)
		}
		duration := "running"
		if r.EndedAt != nil {
			duration = r.Elapsed.Round(time.Second).String()
		}
		fmt.Fprintf(w, historyFormat,
			fmt.Sprint(r.ID),
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Interface,
			duration,
			fmt.Sprint(r.Packets),
			fmt.Sprint(r.Bytes),
			avgBPS,
			avgPPS,
			fmt.Sprint(r.Windows))
		if r.Error != "" {
			fmt.Fprintf(w, "       error: %s\n", r.Error)
		}
	}
}
