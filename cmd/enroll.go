package cmd

import (
	"context"
	"fmt"

	"github.com/kozaktomas/bundy-kiosk/internal/config"
	"github.com/spf13/cobra"
)

var enrollCmd = &cobra.Command{
	Use:   "enroll <employee-id> <image>",
	Short: "Register a face image for an employee",
	Long: `Register a face image for an employee so the kiosk can recognize them.

Examples:
  bundy-kiosk enroll 6f1c2d3e-0000-4a5b-9c8d-112233445566 ada.jpg`,
	Args: cobra.ExactArgs(2),
	RunE: runEnroll,
}

func init() {
	rootCmd.AddCommand(enrollCmd)
}

func runEnroll(cmd *cobra.Command, args []string) error {
	employeeID, path := args[0], args[1]

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	frame, err := readImage(path, cfg)
	if err != nil {
		return err
	}

	ctx := context.Background()
	client, err := connectBackend(ctx, cfg)
	if err != nil {
		return err
	}

	embedding, err := client.RegisterFace(ctx, employeeID, frame.Data)
	if err != nil {
		return explainBackendError(err)
	}

	fmt.Printf("Registered face %s for employee %s\n", embedding.ID, employeeID)
	return nil
}
