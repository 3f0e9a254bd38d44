package main

import (
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/bioma-cli/internal/model"
)

var matchCmd = &cobra.Command{
	Use:   "match",
	Short: "Rank likely acquirers for a company",
	Long: `Rank acquirer candidates for a target company by therapeutic
alignment, patent-cliff urgency, financial capacity, and deal history.

Examples:
  # Top matches above the configured minimum score
  match --company acme-bio

  # Wider net
  match --company acme-bio --top 10 --min-score 30

  # Acquirers facing patent expiries in the target's areas, most urgent first
  match --company acme-bio --cliffs --years 4`,
	RunE: runMatch,
}

func init() {
	f := matchCmd.Flags()
	f.String("company", "", "target company id (required)")
	f.Int("top", 0, "number of matches to return (overrides config)")
	f.Float64("min-score", -1, "minimum match score (overrides config)")
	f.Bool("cliffs", false, "rank by patent-cliff urgency instead of match score")
	f.Int("years", 0, "patent-cliff lookahead in years (with --cliffs)")
	_ = matchCmd.MarkFlagRequired("company")

	rootCmd.AddCommand(matchCmd)
}

func runMatch(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	companyID, _ := cmd.Flags().GetString("company")
	top, _ := cmd.Flags().GetInt("top")
	minScore, _ := cmd.Flags().GetFloat64("min-score")
	cliffs, _ := cmd.Flags().GetBool("cliffs")
	years, _ := cmd.Flags().GetInt("years")

	e, err := openEnv(ctx)
	if err != nil {
		return err
	}
	defer e.Close()

	company, err := e.store.GetCompany(ctx, companyID)
	if err != nil {
		return eris.Wrapf(err, "match: company %s", companyID)
	}

	var matches []model.AcquirerMatch
	if cliffs {
		if years <= 0 {
			years = cfg.Matcher.CliffYearsAhead
		}
		matches, err = e.matcher.FindPatentCliffMatches(ctx, company, years)
	} else {
		if top <= 0 {
			top = cfg.Matcher.TopN
		}
		if minScore < 0 {
			minScore = cfg.Matcher.MinScore
		}
		matches, err = e.matcher.Match(ctx, company, top, minScore)
	}
	if err != nil {
		return eris.Wrapf(err, "match: %s", companyID)
	}

	printMatches(company, matches)
	return nil
}

func printMatches(company *model.Company, matches []model.AcquirerMatch) {
	fmt.Printf("Target: %s (%s)\n\n", company.Name, company.ID)
	if len(matches) == 0 {
		fmt.Println("No matches above threshold.")
		return
	}
	for i, m := range matches {
		fmt.Printf("%d. %s [%s]\n", i+1, m.AcquirerName, m.Type)
		fmt.Printf("   Match score:    %.1f\n", m.MatchScore)
		fmt.Printf("   Alignment:      %.1f   Cliff urgency: %.1f   Capacity: %.1f\n",
			m.TherapeuticAlignment, m.CliffUrgency, m.FinancialCapacity)
		fmt.Printf("   Likelihood:     %.0f%%  Est. premium: ~%.0f%%\n",
			m.DealLikelihood*100, m.EstimatedPremiumPct)
		if m.PatentCliff != nil {
			fmt.Printf("   Patent cliff:   %s expires %s ($%.0fM at risk)\n",
				m.PatentCliff.Product, m.PatentCliff.Expiry.Format("2006-01-02"),
				m.PatentCliff.AnnualRevenue/1e6)
		}
		if len(m.HistoricalPrecedents) > 0 {
			fmt.Printf("   Precedents:     %s\n", strings.Join(m.HistoricalPrecedents, ", "))
		}
		if len(m.KeyDrivers) > 0 {
			fmt.Printf("   Drivers:        %s\n", strings.Join(m.KeyDrivers, "; "))
		}
		fmt.Println()
	}
}
