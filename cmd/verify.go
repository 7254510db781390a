package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/bundy-kiosk/internal/config"
	"github.com/spf13/cobra"
)

var verifyCmd = &cobra.Command{
	Use:   "verify <image>",
	Short: "Identify the face in an image without recording attendance",
	Args:  cobra.ExactArgs(1),
	RunE:  runVerify,
}

func init() {
	rootCmd.AddCommand(verifyCmd)

	verifyCmd.Flags().Bool("json", false, "Output as JSON")
}

func runVerify(cmd *cobra.Command, args []string) error {
	jsonOutput := mustGetBool(cmd, "json")

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	frame, err := readImage(args[0], cfg)
	if err != nil {
		return err
	}

	ctx := context.Background()
	client, err := connectBackend(ctx, cfg)
	if err != nil {
		return err
	}

	result, err := client.VerifyFace(ctx, frame.Data)
	if err != nil {
		return explainBackendError(err)
	}

	if jsonOutput {
		return printJSON(result)
	}

	if !result.Matched {
		msg := result.Message
		if msg == "" {
			msg = "no match"
		}
		fmt.Printf("Not recognized: %s\n", msg)
		return nil
	}

	snapshot := loadRoster(ctx, client)
	employee := snapshot.Lookup(result.EmployeeID)
	fmt.Printf("Matched:    %s (%s)\n", employee.DisplayName, employee.ID)
	if employee.Code != "" {
		fmt.Printf("Code:       %s\n", employee.Code)
	}
	if result.ConfidenceScore != nil {
		fmt.Printf("Confidence: %.1f%%\n", *result.ConfidenceScore*100)
	}
	return nil
}
