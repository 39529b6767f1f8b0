package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tripweaver",
	Short: "A travel journal backend that turns photo dumps into itineraries",
	Long: `Tripweaver ingests travel photos, extracts their EXIF metadata,
groups them into destinations and uses AI models (OpenAI, Gemini) to
write itineraries, captions and trip summaries.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
