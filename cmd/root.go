package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var captureDir string

var rootCmd = &cobra.Command{
	Use:   "bundy-kiosk",
	Short: "Face-verified attendance kiosk",
	Long: `Bundy Kiosk runs a face-verified time-in/time-out station. It captures a
frame from a camera, asks the attendance backend who it is, and records a
time-in or time-out for that employee.

Run "bundy-kiosk kiosk" for the kiosk page, or use the other commands to
punch, verify, enroll and inspect attendance from the terminal.`,
	SilenceUsage: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&captureDir, "capture", "", "Directory to save backend API responses for testing")
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
