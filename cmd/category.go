package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var categoryCmd = &cobra.Command{
	Use:   "category [url]",
	Short: "Crawl a category and scrape every discovered lot",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runCategory,
}

func init() {
	categoryCmd.Flags().Int("max-pages", 0, "Maximum index pages to crawl (0 for all)")
	categoryCmd.Flags().Bool("save", false, "Write results to CSV and JSONL in the output directory")
	categoryCmd.Flags().String("out", "", "Base filename for saved output")
	rootCmd.AddCommand(categoryCmd)
}

func runCategory(cmd *cobra.Command, args []string) error {
	categoryURL := cfg.CategoryURL
	if len(args) > 0 {
		categoryURL = args[0]
	}
	if categoryURL == "" {
		return fmt.Errorf("category URL required (argument or CATEGORY_URL)")
	}

	maxPages := cfg.MaxPages
	if cmd.Flags().Changed("max-pages") {
		maxPages, _ = cmd.Flags().GetInt("max-pages")
	}

	fetcher := buildFetcher()
	defer closeFetcher(fetcher)
	assembler := buildAssembler(fetcher)
	controller := buildController(fetcher, assembler, nil)

	state, err := controller.Run(cmd.Context(), categoryURL, maxPages)
	if err != nil {
		return err
	}
	if len(state.Records) == 0 {
		return fmt.Errorf("no lots scraped from %s", categoryURL)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(state.Records); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "scraped %d of %d discovered lots across %d pages\n",
		state.Succeeded, len(state.Discovered), state.TotalPages)

	if save, _ := cmd.Flags().GetBool("save"); save {
		return saveRecords(cmd, state.Records)
	}
	return nil
}
