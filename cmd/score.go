package main

import (
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/bioma-cli/internal/model"
)

var scoreCmd = &cobra.Command{
	Use:   "score",
	Short: "Calculate composite acquisition-likelihood scores",
	Long: `Calculate the 0-100 composite M&A score for one or more companies.

Each score blends six weighted components (pipeline, patent, financial,
insider, regulatory, strategic fit) with time-decayed signals, attaches
the top acquirer matches, and is persisted to the score history so the
next run can report the trend.

Examples:
  # Score a single company with full component breakdown
  score --company acme-bio

  # Score selected companies
  score --ids acme-bio,zenith-tx

  # Score every company and export the ranking
  score --all --format csv --output scores.csv`,
	RunE: runScore,
}

func init() {
	f := scoreCmd.Flags()
	f.String("company", "", "score a single company by id")
	f.String("ids", "", "comma-separated company ids")
	f.Bool("all", false, "score every company in the store")
	f.Int("top-acquirers", 0, "acquirer matches to attach per score (overrides config)")
	f.String("output", "", "output file path (default: stdout)")
	f.String("format", "table", "output format: table, csv, or xlsx")

	rootCmd.AddCommand(scoreCmd)
}

func runScore(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	companyID, _ := cmd.Flags().GetString("company")
	ids, _ := cmd.Flags().GetString("ids")
	all, _ := cmd.Flags().GetBool("all")
	topAcquirers, _ := cmd.Flags().GetInt("top-acquirers")
	outputPath, _ := cmd.Flags().GetString("output")
	format, _ := cmd.Flags().GetString("format")

	if topAcquirers > 0 {
		cfg.Scoring.TopAcquirers = topAcquirers
	}
	if format != "table" && format != "csv" && format != "xlsx" {
		return eris.Errorf("score: --format must be table, csv, or xlsx (got %q)", format)
	}

	modes := 0
	for _, set := range []bool{companyID != "", ids != "", all} {
		if set {
			modes++
		}
	}
	if modes != 1 {
		return eris.New("score: exactly one of --company, --ids, or --all is required")
	}

	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	log := zap.L().With(zap.String("command", "score"))

	if companyID != "" {
		score, err := e.engine.CalculateScore(ctx, companyID)
		if err != nil {
			return eris.Wrapf(err, "score: company %s", companyID)
		}
		if format == "table" && outputPath == "" {
			printSingleScore(os.Stdout, score)
			return nil
		}
		return outputScores([]model.MAScore{*score}, format, outputPath)
	}

	var targetIDs []string
	if all {
		targetIDs, err = e.store.ListCompanyIDs(ctx)
		if err != nil {
			return eris.Wrap(err, "score: list companies")
		}
	} else {
		targetIDs = splitAndTrim(ids)
	}
	if len(targetIDs) == 0 {
		fmt.Println("No companies to score.")
		return nil
	}

	log.Info("starting batch scoring", zap.Int("companies", len(targetIDs)))

	scores, err := e.engine.BatchCalculate(ctx, targetIDs)
	if err != nil {
		return eris.Wrap(err, "score: batch")
	}

	log.Info("batch scoring complete",
		zap.Int("scored", len(scores)),
		zap.Int("failed", len(targetIDs)-len(scores)),
	)

	return outputScores(scores, format, outputPath)
}

func printSingleScore(w io.Writer, s *model.MAScore) {
	fmt.Fprintf(w, "Company:    %s (%s)\n", s.CompanyName, s.CompanyID)
	fmt.Fprintf(w, "Score:      %.1f / 100\n", s.OverallScore)
	fmt.Fprintf(w, "Trend:      %s (%+.1f)\n", s.Trend, s.TrendDelta)
	fmt.Fprintf(w, "Confidence: %.2f\n", s.Confidence)

	if len(s.Components) > 0 {
		fmt.Fprintln(w, "\nComponents:")
		for _, name := range sortedComponentNames(s.Components) {
			c := s.Components[name]
			fmt.Fprintf(w, "  %-15s %6.1f  (weight %.2f, %d signals, %s)\n",
				name, c.Score, c.Weight, c.SignalCount, c.Trend)
		}
	}
	if len(s.KeySignals) > 0 {
		fmt.Fprintln(w, "\nKey signals:")
		for _, sig := range s.KeySignals {
			fmt.Fprintf(w, "  - %s\n", sig)
		}
	}
	if len(s.TopAcquirers) > 0 {
		fmt.Fprintln(w, "\nTop acquirers:")
		for _, m := range s.TopAcquirers {
			fmt.Fprintf(w, "  %-30s %5.1f  (likelihood %.0f%%, premium ~%.0f%%)\n",
				m.AcquirerName, m.MatchScore, m.DealLikelihood*100, m.EstimatedPremiumPct)
		}
	}
}

func splitAndTrim(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if v := strings.TrimSpace(part); v != "" {
			out = append(out, v)
		}
	}
	return out
}
