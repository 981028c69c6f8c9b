package cmd

import (
	"log"
	"os"

	"github.com/spf13/cobra"

	"github.com/Rorical/RoriLens/internal/app"
)

var runOptions app.Options

var rootCmd = &cobra.Command{
	Use:   "rorilens",
	Short: "Identify what is in an image from the terminal",
	Long: `RoriLens classifies an image from a URL or a local file with a pretrained
model and shows the most likely labels with their confidence.`,
	Run: func(cmd *cobra.Command, args []string) {
		runApplication()
	},
}

func runApplication() {
	application, err := app.NewApplication(runOptions)
	if err != nil {
		log.Fatalf("Failed to create application: %v", err)
	}
	defer application.Stop()

	if err := application.Start(); err != nil {
		log.Fatalf("Application error: %v", err)
	}
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		log.Printf("Command execution error: %v", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&runOptions.Mode, "mode", "m", "", "image input mode: url or file (default from profile)")
	rootCmd.PersistentFlags().StringVarP(&runOptions.Profile, "profile", "p", "", "profile to use for this run")
	rootCmd.PersistentFlags().IntVarP(&runOptions.TopK, "top", "k", 0, "number of predictions to show (default from profile)")

	// Add subcommands
	rootCmd.AddCommand(profileCmd)
}
