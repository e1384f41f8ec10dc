package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"litindex/internal/corpus"
	"litindex/internal/ingest"
)

var (
	ingestInstitution string
	ingestYear        int
	ingestField       string
	ingestCountry     string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <path>...",
	Short: "Load course records into the document store",
	Long: `Load course records into the document store.

.json and .jsonl files are read as one record per line. Any other supported
file (.pdf, .docx, .html, .txt), or every such file under a directory, is
imported as a single record under --institution/--year/--field.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		store, err := openStore(cfg)
		if err != nil {
			return err
		}
		defer store.Close()

		key := corpus.PartitionKey{Institution: ingestInstitution, Year: ingestYear, Field: ingestField}
		var docs []corpus.Document
		var failures []error
		for _, path := range args {
			loaded, errs := collect(path, key)
			docs = append(docs, loaded...)
			failures = append(failures, errs...)
		}

		yellow := color.New(color.FgYellow).SprintFunc()
		for _, err := range failures {
			fmt.Fprintf(os.Stderr, "%s %v\n", yellow("skipped:"), err)
		}

		n, err := store.InsertDocuments(context.Background(), docs)
		if err != nil {
			return err
		}
		green := color.New(color.FgGreen).SprintFunc()
		fmt.Printf("%s %d records into %s\n", green("Loaded"), n, cfg.Database.Path)
		return nil
	},
}

func collect(path string, key corpus.PartitionKey) ([]corpus.Document, []error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, []error{err}
	}

	ext := strings.ToLower(filepath.Ext(path))
	if !info.IsDir() && (ext == ".json" || ext == ".jsonl") {
		docs, err := ingest.LoadJSONLFile(path)
		if err != nil {
			return nil, []error{fmt.Errorf("%s: %w", path, err)}
		}
		return docs, nil
	}

	if !key.Valid() {
		return nil, []error{fmt.Errorf("%s: --institution and --year are required for catalog files", path)}
	}

	var parsed []*ingest.Parsed
	var errs []error
	if info.IsDir() {
		parsed, errs = ingest.ParseDir(path)
	} else {
		p, err := ingest.ParseFile(path)
		if err != nil {
			return nil, []error{fmt.Errorf("%s: %w", path, err)}
		}
		parsed = append(parsed, p)
	}

	docs := make([]corpus.Document, 0, len(parsed))
	for _, p := range parsed {
		docs = append(docs, p.Document(key, ingestCountry))
	}
	return docs, errs
}

func init() {
	ingestCmd.Flags().StringVar(&ingestInstitution, "institution", "", "institution for catalog files")
	ingestCmd.Flags().IntVar(&ingestYear, "year", 0, "year for catalog files")
	ingestCmd.Flags().StringVar(&ingestField, "field", "", "field of study for catalog files")
	ingestCmd.Flags().StringVar(&ingestCountry, "country", "US", "country code for catalog files")
	rootCmd.AddCommand(ingestCmd)
}
