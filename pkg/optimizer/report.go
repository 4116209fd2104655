package optimizer

import (
	"fmt"
	"sort"
	"strings"

	"github.com/faiberforce/dispatch-optimizer/pkg/models"
)

// BuildReport renders the plain-text comparison report: policy mode,
// before/after means, the fallback-level histogram and the unassigned
// breakdown.
func BuildReport(res *Result) string {
	var b strings.Builder

	fmt.Fprintf(&b, "DISPATCH OPTIMIZATION REPORT\n")
	fmt.Fprintf(&b, "run %s  generated %s\n", res.RunID, res.GeneratedAt.Format("2006-01-02 15:04:05"))
	if res.Partial {
		b.WriteString("*** PARTIAL RUN: aborted before completion ***\n")
	}
	b.WriteString(strings.Repeat("=", 64) + "\n\n")

	fmt.Fprintf(&b, "Policy: %s / %s (min_success=%.2f, max_capacity=%.2f)\n",
		res.Policy.Strategy, res.Policy.Mode,
		res.Policy.Thresholds.MinSuccess, res.Policy.Thresholds.MaxCapacity)
	if res.Policy.Emergency {
		b.WriteString("Emergency staffing mode active\n")
	}
	fmt.Fprintf(&b, "Success model: %s\n\n", res.SuccessMode)

	fmt.Fprintf(&b, "%-28s %12s %12s %12s\n", "", "before", "after", "delta")
	row := func(name string, before, after float64, prec int, suffix string) {
		fmt.Fprintf(&b, "%-28s %12s %12s %12s\n", name,
			fmt.Sprintf("%.*f%s", prec, before, suffix),
			fmt.Sprintf("%.*f%s", prec, after, suffix),
			fmt.Sprintf("%+.*f%s", prec, after-before, suffix))
	}
	row("assignment rate", res.Before.AssignmentRate*100, res.After.AssignmentRate*100, 1, "%")
	row("mean success", res.Before.MeanSuccess, res.After.MeanSuccess, 3, "")
	row("mean distance (km)", res.Before.MeanDistanceKm, res.After.MeanDistanceKm, 1, "")
	row("mean skill match", res.Before.MeanSkillMatch, res.After.MeanSkillMatch, 3, "")
	row("mean workload ratio", res.Before.MeanWorkloadRatio, res.After.MeanWorkloadRatio, 3, "")
	row("mean overrun (min)", res.Before.MeanOverrunMin, res.After.MeanOverrunMin, 1, "")
	row("mean dispatch grade", res.Before.MeanGrade, res.After.MeanGrade, 1, "")
	b.WriteString("\n")

	fmt.Fprintf(&b, "Assignments changed: %d of %d dispatches\n", res.Changed, len(res.Deltas))
	fmt.Fprintf(&b, "Post-optimization: %d passes, %d moves kept\n", res.PostOptPasses, res.PostOptMoves)
	fmt.Fprintf(&b, "Workload spread: %.0f%% of technicians below 40%%, %.0f%% above 100%%\n\n",
		res.After.PctBelow40*100, res.After.PctAbove100*100)

	b.WriteString("Fallback levels:\n")
	for level := models.FallbackStrict; level <= models.MaxFallbackLevel; level++ {
		count := res.After.FallbackHistogram[level]
		if count == 0 {
			continue
		}
		fmt.Fprintf(&b, "  %-16s %6d\n", level.String(), count)
	}

	if len(res.Unassigned) > 0 {
		b.WriteString("\nUnassigned:\n")
		byReason := make(map[models.UnassignedReason]int)
		for _, u := range res.Unassigned {
			byReason[u.Reason]++
		}
		reasons := make([]string, 0, len(byReason))
		for r := range byReason {
			reasons = append(reasons, string(r))
		}
		sort.Strings(reasons)
		for _, r := range reasons {
			fmt.Fprintf(&b, "  %-20s %6d\n", r, byReason[models.UnassignedReason(r)])
		}
	}

	return b.String()
}
