package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/Rorical/RoriLens/internal/app"
	"github.com/Rorical/RoriLens/ui/components"
)

var classifyCmd = &cobra.Command{
	Use:   "classify [url-or-path]",
	Short: "Classify one image and print the predictions",
	Long: `Classify a single image without starting the interactive UI. URLs are
fetched, anything else is read as a file path or glob. Use --mode to force
one or the other.`,
	Args: cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		defer stop()

		predictions, err := app.ClassifyOnce(ctx, runOptions, args[0])
		if err != nil {
			log.Fatalf("Classification failed: %v", err)
		}
		if len(predictions) == 0 {
			fmt.Println("No predictions")
			return
		}
		fmt.Print(components.FormatPredictions(predictions))
	},
}

func init() {
	rootCmd.AddCommand(classifyCmd)
}
