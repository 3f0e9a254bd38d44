package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/bioma-cli/internal/importer"
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Bulk-load companies, acquirers, patent cliffs, or deal history",
	Long: `Bulk-load reference data from an XLSX workbook or JSON file.

Company workbooks need a "companies" sheet and may carry "pipeline",
"patents", and "financials" sheets joined on company_id. Acquirer,
cliff, and deal workbooks use a single sheet named after the kind.

Examples:
  import --file universe.xlsx --kind companies
  import --file snapshots.json --kind companies-json
  import --file pharma.xlsx --kind acquirers
  import --file cliffs.xlsx --kind cliffs
  import --file deals.xlsx --kind deals`,
	RunE: runImport,
}

func init() {
	f := importCmd.Flags()
	f.String("file", "", "input file path (required)")
	f.String("kind", "", "companies, companies-json, acquirers, cliffs, or deals (required)")
	_ = importCmd.MarkFlagRequired("file")
	_ = importCmd.MarkFlagRequired("kind")

	rootCmd.AddCommand(importCmd)
}

func runImport(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	path, _ := cmd.Flags().GetString("file")
	kind, _ := cmd.Flags().GetString("kind")

	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.store.Migrate(ctx); err != nil {
		return eris.Wrap(err, "import: migrate")
	}

	imp := importer.New(e.store)

	var count int
	switch strings.ToLower(kind) {
	case "companies":
		count, err = imp.ImportCompanies(ctx, path)
	case "companies-json":
		count, err = imp.ImportCompaniesJSON(ctx, path)
	case "acquirers":
		count, err = imp.ImportAcquirers(ctx, path)
	case "cliffs":
		count, err = imp.ImportPatentCliffs(ctx, path)
	case "deals":
		count, err = imp.ImportDeals(ctx, path)
	default:
		return eris.Errorf("import: unknown kind %q", kind)
	}
	if err != nil {
		return err
	}

	fmt.Printf("Imported %d %s record(s) from %s\n", count, kind, path)
	return nil
}
