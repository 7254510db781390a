package cmd

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/kozaktomas/bundy-kiosk/internal/config"
	"github.com/kozaktomas/bundy-kiosk/internal/roster"
	"github.com/spf13/cobra"
)

var rosterCmd = &cobra.Command{
	Use:   "roster [query]",
	Short: "List employees known to the backend",
	Long: `List employees known to the backend, optionally filtered by a name or
code query. Matching ignores case and diacritics.

Examples:
  bundy-kiosk roster
  bundy-kiosk roster novak`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRoster,
}

func init() {
	rootCmd.AddCommand(rosterCmd)

	rosterCmd.Flags().Bool("json", false, "Output as JSON")
}

func runRoster(cmd *cobra.Command, args []string) error {
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

	snapshot, err := roster.Load(ctx, client)
	if err != nil {
		return explainBackendError(err)
	}

	query := ""
	if len(args) > 0 {
		query = args[0]
	}
	employees := snapshot.Search(query)

	if jsonOutput {
		return printJSON(employees)
	}

	if len(employees) == 0 {
		fmt.Println("No employees found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "CODE\tNAME\tDEPARTMENT\tID")
	for _, e := range employees {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Code, e.DisplayName, e.Department, e.ID)
	}
	w.Flush()
	fmt.Printf("\n%d of %d employees\n", len(employees), snapshot.Len())
	return nil
}
