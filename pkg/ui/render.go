package ui

import (
	"fmt"
	"math/big"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/shopspring/decimal"

	"github.com/fd1az/swap-router/business/routing/domain"
	"github.com/fd1az/swap-router/internal/asset"
)

// displayPlaces caps the fractional digits shown for token amounts.
const displayPlaces = 6

// Pair labels the swap being rendered.
type Pair struct {
	In          string
	Out         string
	InDecimals  uint8
	OutDecimals uint8
	// Mid is the intermediate symbol shown for multi-hop paths.
	Mid string
}

func (p Pair) String() string { return p.In + " → " + p.Out }

// FormatAmount renders a smallest-unit value in whole units.
func FormatAmount(raw *big.Int, decimals uint8) string {
	return asset.FormatUnits(raw, decimals).Truncate(displayPlaces).String()
}

// FeeTierLabel renders a concentrated pool fee (hundredths of a basis
// point) as a percentage; zero is a constant-product hop.
func FeeTierLabel(fee uint32) string {
	if fee == 0 {
		return "v2"
	}
	return decimal.New(int64(fee), -4).String() + "%"
}

// RenderResult renders the recommended outcome of a token-to-token search.
func RenderResult(p Pair, res *domain.TokenToTokenResult) string {
	if res == nil || res.Recommendation == domain.RecommendNone {
		return WarningValue.Render(fmt.Sprintf("No route found for %s", p))
	}
	if res.Recommendation == domain.RecommendMultiHop && res.MultiHop != nil {
		return RenderMultiHop(p, res.MultiHop)
	}
	return RenderPlan(p, res.Direct)
}

// RenderPlan renders a direct plan with one row per route.
func RenderPlan(p Pair, plan *domain.RoutePlan) string {
	if !plan.HasRoute() {
		return WarningValue.Render(fmt.Sprintf("No liquidity for %s", p))
	}

	var b strings.Builder

	title := "Best route"
	switch {
	case plan.IsWrapUnwrap:
		title = "Wrap / unwrap"
	case plan.IsSplit():
		title = "Split route"
	}
	b.WriteString(HeaderStyle.Render(fmt.Sprintf("%s  %s", title, p)))
	b.WriteString("\n\n")

	rows := make([][]string, 0, len(plan.Routes))
	for _, r := range plan.Routes {
		rows = append(rows, []string{
			venueLabel(r),
			fmt.Sprintf("%d%%", r.Percentage),
			FormatAmount(r.AmountIn, p.InDecimals),
			FormatAmount(r.ExpectedOut, p.OutDecimals),
			FormatAmount(r.MinOut, p.OutDecimals),
		})
	}
	b.WriteString(routeTable(
		[]string{"VENUE", "SHARE", "IN " + p.In, "OUT " + p.Out, "MIN OUT"},
		rows,
	))
	b.WriteString("\n")

	b.WriteString(kv("Expected out", PositiveValue.Render(FormatAmount(plan.TotalExpectedOut, p.OutDecimals)+" "+p.Out)))
	b.WriteString(kv("Minimum out", FormatAmount(plan.TotalMinOut, p.OutDecimals)+" "+p.Out+
		MutedValue.Render(fmt.Sprintf("  (slippage %s%%)", bpsPercent(plan.SlippageBps)))))
	if plan.ProtocolFee.Sign() > 0 {
		b.WriteString(kv("Protocol fee", FormatAmount(plan.ProtocolFee, p.InDecimals)+" "+p.In))
	}
	if !plan.IsWrapUnwrap {
		b.WriteString(kv("Best single venue", plan.BestSingleVenueName))
		if plan.IsSplit() {
			verdict := MutedValue.Render("no (kept for depth)")
			if plan.IsSplitBetter {
				verdict = PositiveValue.Render("yes")
			}
			b.WriteString(kv("Split beats best", verdict))
		}
		b.WriteString(kv("Price impact", impactStyle(plan.PriceImpactEstimate).Render(plan.PriceImpactEstimate.String()+"%")))
	}
	return b.String()
}

// RenderMultiHop renders a two-hop route through the intermediate asset.
func RenderMultiHop(p Pair, r *domain.MultiHopRoute) string {
	var b strings.Builder

	mid := p.Mid
	if mid == "" {
		mid = asset.ShortAddress(r.Intermediate)
	}
	b.WriteString(HeaderStyle.Render(fmt.Sprintf("Multi-hop route  %s → %s → %s", p.In, mid, p.Out)))
	b.WriteString("\n\n")

	b.WriteString(routeTable(
		[]string{"HOP", "PATH", "POOL"},
		[][]string{
			{"1", p.In + " → " + mid, FeeTierLabel(r.FeeIn)},
			{"2", mid + " → " + p.Out, FeeTierLabel(r.FeeOut)},
		},
	))
	b.WriteString("\n")

	b.WriteString(kv("Amount in", FormatAmount(r.AmountIn, p.InDecimals)+" "+p.In))
	b.WriteString(kv("Expected out", PositiveValue.Render(FormatAmount(r.ExpectedOut, p.OutDecimals)+" "+p.Out)))
	b.WriteString(kv("Minimum out", FormatAmount(r.MinOut, p.OutDecimals)+" "+p.Out))
	b.WriteString(kv("Protocol fee", FormatAmount(r.ProtocolFee, p.OutDecimals)+" "+p.Out))
	b.WriteString(kv("Price impact", impactStyle(r.PriceImpactEstimate).Render(r.PriceImpactEstimate.String()+"%")))
	return b.String()
}

func routeTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(ColorBorder)).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return TableHeaderStyle
			}
			return TableCellStyle
		}).
		Headers(headers...).
		Rows(rows...)
	return t.String()
}

func venueLabel(r domain.Route) string {
	label := r.VenueName
	if r.FeeTier != 0 && !strings.Contains(label, "%") {
		label += " " + FeeTierLabel(r.FeeTier)
	}
	if r.UsesVenueRouter {
		label += AccentValue.Render(" *")
	}
	return label
}

func kv(k, v string) string {
	return fmt.Sprintf("%s %s\n", MutedValue.Render(fmt.Sprintf("%-18s", k+":")), v)
}

func bpsPercent(bps uint32) string {
	return decimal.New(int64(bps), -2).String()
}

func impactStyle(pct decimal.Decimal) lipgloss.Style {
	switch {
	case pct.GreaterThanOrEqual(decimal.NewFromInt(5)):
		return NegativeValue
	case pct.GreaterThanOrEqual(decimal.NewFromInt(1)):
		return WarningValue
	default:
		return PositiveValue
	}
}
