package main

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"sort"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/heatsafenet/hubsite/internal/model"
	"github.com/heatsafenet/hubsite/internal/scenario"
)

var printer = message.NewPrinter(language.English)

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// formatResult writes selected sites and summary stats as aligned tables.
func formatResult(out io.Writer, res *model.Result, recs []scenario.Recommendation) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	s := res.Stats
	printer.Fprintf(w, "Scenario:\t%s\n", res.ScenarioID)
	printer.Fprintf(w, "Status:\t%s%s\n", res.Status, fallbackSuffix(res))
	printer.Fprintf(w, "Sites selected:\t%d of %d eligible\n", s.SitesSelected, s.EligibleSites)
	printer.Fprintf(w, "Covered population:\t%.0f of %.0f (%.1f%%)\n", s.CoveredPopulation, s.TotalPopulation, 100*s.CoverageRate)
	printer.Fprintf(w, "Risk-weighted coverage:\t%.1f\n", s.RiskWeightedCoverage)
	printer.Fprintf(w, "High-risk coverage:\t%.1f%% of %d units\n", 100*s.HighRiskCoverageRate, s.HighRiskUnits)
	printer.Fprintf(w, "Solve time:\t%s (%d nodes)\n", s.SolveTime.Round(time.Microsecond), s.NodesExplored)
	_ = w.Flush()

	if len(recs) == 0 {
		return
	}
	_, _ = io.WriteString(out, "\n")
	w = tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = io.WriteString(w, "RANK\tSITE\tNAME\tCATEGORY\tCOVERED_POP\tUNIQUE_POP\tRISK_COVERAGE\tSUITABILITY\tFLAGS\n")
	_, _ = io.WriteString(w, "----\t----\t----\t--------\t-----------\t----------\t-------------\t-----------\t-----\n")
	for _, r := range recs {
		printer.Fprintf(w, "%d\t%s\t%s\t%s\t%.0f\t%.0f\t%.1f\t%.2f\t%s\n",
			r.Rank,
			r.Site.ID,
			truncate(r.Site.Name, 30),
			r.Site.Category,
			r.CoveredPopulation,
			r.UniquePopulation,
			r.RiskWeightedCoverage,
			r.Suitability,
			constraintFlags(r.Constraints),
		)
	}
	_ = w.Flush()
}

func fallbackSuffix(res *model.Result) string {
	if res.Fallback == model.FallbackNone {
		return ""
	}
	return " (" + string(res.Fallback) + ")"
}

func constraintFlags(c scenario.Constraints) string {
	var flags []string
	if !c.MinSizeMet {
		flags = append(flags, "small")
	}
	if c.FloodRisk {
		flags = append(flags, "flood")
	}
	if c.HazardRisk {
		flags = append(flags, "hazard")
	}
	if !c.BroadbandAvailable {
		flags = append(flags, "no_broadband")
	}
	return strings.Join(flags, ",")
}

var resultCSVHeader = []string{
	"scenario_id", "site_id", "name", "category", "lat", "lon", "size_m2",
	"covered_units", "covered_population", "unique_population", "risk_weighted_coverage",
}

// writeResultCSV writes one row per selected site.
func writeResultCSV(out io.Writer, res *model.Result) error {
	w := csv.NewWriter(out)
	if err := w.Write(resultCSVHeader); err != nil {
		return err
	}
	for _, s := range res.Selected {
		if err := w.Write([]string{
			res.ScenarioID,
			s.Site.ID,
			s.Site.Name,
			string(s.Site.Category),
			formatFloat(s.Site.Location.Lat),
			formatFloat(s.Site.Location.Lon),
			formatFloat(s.Site.SizeM2),
			strconv.Itoa(len(s.CoveredUnits)),
			formatFloat(s.CoveredPopulation),
			formatFloat(s.UniquePopulation),
			formatFloat(s.RiskWeightedCoverage),
		}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// formatAnalysis writes one row per solved budget plus failures and the best
// scenario per K.
func formatAnalysis(out io.Writer, a scenario.Analysis) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = io.WriteString(w, "SERIES\tK\tCOVERAGE\tCOVERED_POP\tRISK_COVERAGE\tMARGINAL\tPER_SITE\tOPTIMAL\n")
	_, _ = io.WriteString(w, "------\t-\t--------\t-----------\t-------------\t--------\t--------\t-------\n")
	for _, series := range a.Series {
		marginal := make(map[int]float64, len(series.Marginals))
		for _, m := range series.Marginals {
			marginal[m.ToK] = m.Benefit
		}
		efficiency := make(map[int]scenario.Efficiency, len(series.Efficiency))
		for _, e := range series.Efficiency {
			efficiency[e.K] = e
		}
		for _, p := range series.Points {
			m := "-"
			if v, ok := marginal[p.K]; ok {
				m = printer.Sprintf("%.1f", v)
			}
			eff := efficiency[p.K]
			perSite := printer.Sprintf("%.3f", eff.CoveragePerSite)
			if eff.DiminishingReturns {
				perSite += " *"
			}
			printer.Fprintf(w, "%s\t%d\t%.1f%%\t%.0f\t%.1f\t%s\t%s\t%t\n",
				series.Name, p.K, 100*p.CoverageRate, p.CoveredPopulation, p.RiskWeightedCoverage, m, perSite, p.SolvedOptimally)
		}
	}
	_ = w.Flush()

	printer.Fprintf(out, "\n%d scenarios, %d failed\n", a.Scenarios, a.Failed)
	codes := make([]string, 0, len(a.FailedCodes))
	for code := range a.FailedCodes {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	for _, code := range codes {
		printer.Fprintf(out, "  %s: %d\n", code, a.FailedCodes[code])
	}
	for _, b := range a.BestByK {
		printer.Fprintf(out, "Best at K=%d: %s (%.1f%%)\n", b.K, b.ScenarioID, 100*b.CoverageRate)
	}
	if len(a.Series) > 0 {
		_, _ = io.WriteString(out, "* diminishing returns\n")
	}
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n-3] + "..."
	}
	return s
}
