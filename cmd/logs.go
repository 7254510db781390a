package cmd

import (
	"context"
	"fmt"
	"os"
	"slices"
	"text/tabwriter"
	"time"

	"github.com/kozaktomas/bundy-kiosk/internal/bundyclock"
	"github.com/kozaktomas/bundy-kiosk/internal/config"
	"github.com/spf13/cobra"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show recorded attendance",
	Long: `Show recorded attendance events, newest first.

Examples:
  bundy-kiosk logs --limit 20
  bundy-kiosk logs --employee 6f1c2d3e-0000-4a5b-9c8d-112233445566`,
	Args: cobra.NoArgs,
	RunE: runLogs,
}

func init() {
	rootCmd.AddCommand(logsCmd)

	logsCmd.Flags().String("employee", "", "Only show events for this employee ID")
	logsCmd.Flags().Int("limit", 50, "Maximum number of events (0 = no limit)")
	logsCmd.Flags().Bool("json", false, "Output as JSON")
}

func runLogs(cmd *cobra.Command, args []string) error {
	employeeID := mustGetString(cmd, "employee")
	limit := mustGetInt(cmd, "limit")
	jsonOutput := mustGetBool(cmd, "json")

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	ctx := context.Background()
	client, err := connectBackend(ctx, cfg)
	if err != nil {
		return err
	}

	var entries []bundyclock.AttendanceLog
	if employeeID != "" {
		entries, err = client.ListAttendanceByEmployee(ctx, employeeID)
	} else {
		entries, err = client.ListAttendance(ctx)
	}
	if err != nil {
		return explainBackendError(err)
	}

	slices.SortFunc(entries, func(a, b bundyclock.AttendanceLog) int {
		return b.Timestamp.Compare(a.Timestamp.Time)
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	if jsonOutput {
		return printJSON(entries)
	}

	if len(entries) == 0 {
		fmt.Println("No attendance recorded")
		return nil
	}

	snapshot := loadRoster(ctx, client)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TIME\tTYPE\tEMPLOYEE\tCONFIDENCE\tVERIFIED")
	for _, e := range entries {
		confidence := "-"
		if e.ConfidenceScore != nil {
			confidence = fmt.Sprintf("%.1f%%", *e.ConfidenceScore*100)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%v\n",
			e.Timestamp.Local().Format(time.DateTime),
			e.Type,
			snapshot.Lookup(e.EmployeeID).DisplayName,
			confidence,
			e.Verified,
		)
	}
	w.Flush()
	return nil
}
