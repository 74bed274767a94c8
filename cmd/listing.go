package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"catalot/lotworker/internal/fetch"
	"catalot/lotworker/internal/lot"
	"catalot/lotworker/pipeline"
)

var listingCmd = &cobra.Command{
	Use:   "listing [url...]",
	Short: "Scrape one or more lot pages",
	Args:  cobra.ArbitraryArgs,
	RunE:  runListing,
}

func init() {
	listingCmd.Flags().String("input", "", "File with one lot URL per line")
	listingCmd.Flags().Bool("save", false, "Write results to CSV and JSONL in the output directory")
	listingCmd.Flags().String("out", "", "Base filename for saved output (default lots_<timestamp>)")
	rootCmd.AddCommand(listingCmd)
}

func runListing(cmd *cobra.Command, args []string) error {
	urls := args
	if input, _ := cmd.Flags().GetString("input"); input != "" {
		fromFile, err := readURLFile(input)
		if err != nil {
			return err
		}
		urls = append(urls, fromFile...)
	}
	if len(urls) == 0 {
		return fmt.Errorf("no lot URLs given (arguments or --input)")
	}

	fetcher := buildFetcher()
	defer closeFetcher(fetcher)
	assembler := buildAssembler(fetcher)

	ctx := cmd.Context()
	var records []lot.Record
	for i, url := range urls {
		if i > 0 {
			if err := fetch.Sleep(ctx, cfg.ItemDelay); err != nil {
				return err
			}
		}
		rec, err := assembler.Assemble(ctx, url)
		if err != nil {
			fmt.Fprintf(os.Stderr, "skipping %s: %v\n", url, err)
			continue
		}
		records = append(records, *rec)
	}

	if len(records) == 0 {
		return fmt.Errorf("no lots scraped")
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(records); err != nil {
		return err
	}

	if save, _ := cmd.Flags().GetBool("save"); save {
		return saveRecords(cmd, records)
	}
	return nil
}

func saveRecords(cmd *cobra.Command, records []lot.Record) error {
	base, _ := cmd.Flags().GetString("out")
	if base == "" {
		base = "lots_" + time.Now().Format("20060102_150405")
	}
	path := filepath.Join(cfg.OutputDir, base)

	writer, err := pipeline.NewDualWriter(path+".csv", path+".jsonl")
	if err != nil {
		return err
	}
	defer writer.Close()

	if err := writer.Write(records); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "saved %d lots to %s.{csv,jsonl}\n", len(records), path)
	return nil
}

// readURLFile reads one URL per line, skipping blanks and comments.
func readURLFile(path string) ([]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var urls []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		urls = append(urls, line)
	}
	return urls, nil
}
