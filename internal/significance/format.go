package significance

import (
	"math"
	"strings"

	"allday/domain/stats"
	"allday/domain/verdict"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// Money renders a dollar amount with thousands separators: $1,234.56
func Money(v float64) string {
	return printer.Sprintf("$%.2f", v)
}

// Number renders a plain figure with thousands separators
func Number(v float64) string {
	return printer.Sprintf("%.2f", v)
}

// Percent renders a share as 12.34%
func Percent(share float64) string {
	return printer.Sprintf("%.2f%%", share*100)
}

func amount(v float64, money bool) string {
	if money {
		return Money(v)
	}
	return Number(v)
}

// NoData is the verdict for a comparison whose named side had no values
func NoData(group string) string {
	return "no data for group " + group
}

// NoComparison is the verdict when both sides had data but no p-value was defined
const NoComparison = "no comparison possible"

// DriverSplit describes one flag split of a group for labeling
type DriverSplit struct {
	Group     string // position, position group or tier
	ShortForm string // TDs, Winners, Best Guess Moment, ...
	Pair      bool   // flagged side and other side come from two flags
	Flagged   int    // rows on the flagged side
	Other     int    // rows on the other side
	Total     int    // rows in the group
}

func (d DriverSplit) share() string {
	if d.Pair {
		if d.Other == 0 {
			return "(No " + d.ShortForm + ")"
		}
		return "(" + Number(float64(d.Flagged)/float64(d.Other)) + " BG: Desc)"
	}
	if d.Total == 0 {
		return "(No " + d.ShortForm + ")"
	}
	return "(" + Percent(float64(d.Flagged)/float64(d.Total)) + " " + d.ShortForm + ")"
}

// RenderDriver builds the record for a flagged-vs-other comparison. A is
// the flagged side.
func RenderDriver(d DriverSplit, r stats.TestResult, money bool) verdict.Record {
	rec := verdict.Record{
		Label:  "Position: " + d.Group + " " + d.share(),
		Status: verdict.StatusOf(r),
		Result: r,
	}
	ma, mb := r.MeanA.Float(), r.MeanB.Float()
	rec.Comparison = amount(ma, money) + " vs " + amount(mb, money)

	switch {
	case r.Comparable() && r.Significant:
		switch r.Direction {
		case stats.DirectionHigher:
			rec.Verdict = "+ " + d.ShortForm + " HIGHER"
		case stats.DirectionLower:
			rec.Verdict = "- " + d.ShortForm + " LOWER"
		default:
			rec.Verdict = string(stats.DirectionNoDifference)
		}
	case r.Comparable():
	case math.IsNaN(ma) && math.IsNaN(mb):
		rec.Comparison = ""
		rec.Verdict = NoData(d.ShortForm + " or No " + d.ShortForm)
	case math.IsNaN(ma):
		rec.Comparison = "No " + d.ShortForm + ": " + amount(mb, money)
		rec.Verdict = NoData(d.ShortForm)
	case math.IsNaN(mb):
		rec.Comparison = d.ShortForm + ": " + amount(ma, money)
		rec.Verdict = NoData("No " + d.ShortForm)
	default:
		rec.Verdict = NoComparison
	}
	return rec
}

// TitleOf turns Before_Game_vs_During_Game_Price into a display title
func TitleOf(name string) string {
	return strings.ReplaceAll(name, "_", " ")
}

// RenderWindowComparison builds the record for a named before/after
// comparison. Labels name the two sides for the no-data verdict.
func RenderWindowComparison(name, labelA, labelB string, r stats.TestResult, money bool) verdict.Record {
	rec := verdict.Record{
		Label:  TitleOf(name),
		Status: verdict.StatusOf(r),
		Result: r,
	}
	a, b := r.Stats()
	rec.Comparison = amount(a, money) + " vs " + amount(b, money)

	switch {
	case r.NA == 0 && r.NB == 0:
		rec.Comparison = ""
		rec.Verdict = NoData(labelA + " or " + labelB)
	case !r.Comparable():
		rec.Verdict = NoComparison
	case r.Significant:
		rec.Verdict = printer.Sprintf("+ Yes (p=%.3f)", r.PValue.Float())
	default:
		rec.Verdict = printer.Sprintf("- No difference (p=%.3f)", r.PValue.Float())
	}
	return rec
}
