package main

import (
	"bufio"
	"context"
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"peakform/amsbridge/internal/client"
	"peakform/amsbridge/internal/common"
	"peakform/amsbridge/internal/constants"
	"peakform/amsbridge/internal/importer"
	"peakform/amsbridge/internal/logging"
	"peakform/amsbridge/internal/services"
)

func main() {
	var (
		file        = flag.String("file", "", "CSV file to import (required)")
		form        = flag.String("form", "", "target form name (required)")
		mode        = flag.String("mode", "insert", "operation: insert, update, upsert, or profile")
		idCol       = flag.String("id-col", "user_id", "identifier column: user_id, username, email, about, uuid")
		tableFields = flag.String("table-fields", "", "comma-separated table field names")
		chunkSize   = flag.Int("chunk-size", 0, "events per request, 0 for the default")
		yes         = flag.Bool("yes", false, "skip the confirmation prompt for updates")
		url         = flag.String("url", os.Getenv("AMS_URL"), "AMS site URL, e.g. https://example.ams.com/site")
	)
	flag.Parse()

	if *file == "" || *form == "" {
		flag.Usage()
		os.Exit(2)
	}

	if err := logging.Init(os.Getenv("APP_ENV")); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logging.Close()

	kind, err := importer.ParseIdentifierKind(*idCol)
	if err != nil {
		fatal(err)
	}

	rows, err := readCSV(*file)
	if err != nil {
		fatal(fmt.Errorf("failed to read %s: %w", *file, err))
	}

	cache := common.NewCacheService(constants.ResponseCacheTTL, 2*constants.ResponseCacheTTL)
	amsClient, err := client.NewAMSClient(*url, os.Getenv("AMS_USERNAME"), os.Getenv("AMS_PASSWORD"), cache)
	if err != nil {
		fatal(err)
	}

	directory := services.NewUserDirectoryService(amsClient, cache)
	imp := importer.New(amsClient, directory)

	opts := importer.Options{
		IdentifierKind: kind,
		ChunkSize:      *chunkSize,
	}
	if *tableFields != "" {
		for _, f := range strings.Split(*tableFields, ",") {
			opts.TableFields = append(opts.TableFields, strings.TrimSpace(f))
		}
	}
	if !*yes {
		opts.Confirm = promptConfirm
	}

	ctx := context.Background()
	var summary *importer.Summary
	switch *mode {
	case "insert":
		summary, err = imp.InsertEvents(ctx, *form, rows, opts)
	case "update":
		summary, err = imp.UpdateEvents(ctx, *form, rows, opts)
	case "upsert":
		summary, err = imp.UpsertEvents(ctx, *form, rows, opts)
	case "profile":
		summary, err = imp.UpsertProfiles(ctx, *form, rows, opts)
	default:
		fatal(fmt.Errorf("unknown mode %q: use insert, update, upsert, or profile", *mode))
	}
	if err != nil {
		fatal(err)
	}

	printSummary(*form, *mode, summary)
	if len(summary.Failed) > 0 {
		os.Exit(1)
	}
}

// readCSV maps a header-rowed CSV to import rows. Every cell stays a
// string; the pipeline parses dates and ids itself.
func readCSV(path string) ([]importer.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	records, err := reader.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("need a header row and at least one data row")
	}

	header := records[0]
	rows := make([]importer.Row, 0, len(records)-1)
	for _, rec := range records[1:] {
		row := make(importer.Row, len(header))
		for i, col := range header {
			if i < len(rec) {
				row[col] = rec[i]
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func promptConfirm(operation importer.Mode, count int, form string) bool {
	fmt.Printf("About to %s %d existing record(s) on form %q. Continue? [y/N]: ", operation, count, form)
	scanner := bufio.NewScanner(os.Stdin)
	if !scanner.Scan() {
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(scanner.Text()))
	return answer == "y" || answer == "yes"
}

func printSummary(form, mode string, summary *importer.Summary) {
	fmt.Printf("\n%s %q: %d attempted, %d succeeded, %d failed\n",
		mode, form, summary.Attempted, summary.Succeeded, len(summary.Failed))
	for _, f := range summary.Failed {
		fmt.Printf("  %s: %s\n", f.Identifier, f.Reason)
	}
}

func fatal(err error) {
	fmt.Fprintln(os.Stderr, "amsimport:", err)
	os.Exit(1)
}

