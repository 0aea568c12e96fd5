// inference/fallback.go
package inference

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/quantfx/advisor/market"
)

// MaxFallbackSizeFraction is the hard ceiling on fallback position sizing:
// the degraded path never commits more than 5% of the base balance.
const MaxFallbackSizeFraction = 0.05

// fallbackBaseConfidence is the floor confidence for any fallback result.
const fallbackBaseConfidence = 0.2

// Fallback is the degraded local analysis path used when the engine is
// unreachable or fails. It never fails itself: even an empty history yields
// a neutral no-action result, so the "every request gets an answer"
// contract survives engine outages.
type Fallback struct{}

// pairStats is realized performance for one pair over the history window.
type pairStats struct {
	pair   market.Pair
	netPL  float64 // realized P&L in quote currency
	wins   int
	losses int
}

// Analyze computes a conservative recommendation from realized performance:
// net P&L per pair, win/loss ratio, position size scaled by win rate and
// capped at MaxFallbackSizeFraction.
func (Fallback) Analyze(snap *market.Snapshot) *RawOutput {
	stats := realizedStats(snap.Transactions)

	wins, losses := 0, 0
	for _, s := range stats {
		wins += s.wins
		losses += s.losses
	}

	winRate := 0.0
	if wins+losses > 0 {
		winRate = float64(wins) / float64(wins+losses)
	}

	best := bestPair(stats)

	out := &RawOutput{
		Direction:  Hold,
		Confidence: fallbackBaseConfidence + 0.25*winRate,
	}

	if best != nil && best.netPL > 0 {
		// Lean into what has actually worked, sized down by the loss record.
		fraction := math.Min(MaxFallbackSizeFraction, winRate*MaxFallbackSizeFraction)
		sizeFraction := decimal.NewFromFloat(fraction).Round(4)

		out.Pair = best.pair
		out.Direction = Buy
		out.SizeFraction = sizeFraction
		out.Amount = snap.Balance(best.pair.Base()).Mul(sizeFraction).Round(2)
	}

	out.Narrative = narrative(snap, stats, winRate, out)
	return out
}

// realizedStats walks the history per pair, tracking an average-cost
// position and realizing P&L whenever a transaction reduces it.
func realizedStats(txs []market.Transaction) map[market.Pair]*pairStats {
	type position struct {
		units   float64 // signed base units
		avgRate float64
	}

	stats := make(map[market.Pair]*pairStats)
	positions := make(map[market.Pair]*position)

	for _, tx := range txs {
		st, ok := stats[tx.Pair]
		if !ok {
			st = &pairStats{pair: tx.Pair}
			stats[tx.Pair] = st
		}
		pos, ok := positions[tx.Pair]
		if !ok {
			pos = &position{}
			positions[tx.Pair] = pos
		}

		amt := tx.Amount.InexactFloat64()
		if amt == 0 {
			continue
		}

		if pos.units == 0 || sameSign(pos.units, amt) {
			// Opening or extending: blend the average entry rate.
			total := pos.units + amt
			pos.avgRate = (pos.units*pos.avgRate + amt*tx.Rate) / total
			pos.units = total
			continue
		}

		// Reducing (or reversing) the position realizes P&L.
		closed := math.Min(math.Abs(amt), math.Abs(pos.units))
		var pl float64
		if pos.units > 0 {
			pl = closed * (tx.Rate - pos.avgRate)
		} else {
			pl = closed * (pos.avgRate - tx.Rate)
		}
		st.netPL += pl
		if pl >= 0 {
			st.wins++
		} else {
			st.losses++
		}

		remainder := math.Abs(amt) - math.Abs(pos.units)
		if remainder > 0 {
			// Reversed through zero: the excess opens a new position.
			pos.units = math.Copysign(remainder, amt)
			pos.avgRate = tx.Rate
		} else {
			pos.units += amt
			if pos.units == 0 {
				pos.avgRate = 0
			}
		}
	}

	return stats
}

func sameSign(a, b float64) bool {
	return (a > 0) == (b > 0)
}

// bestPair returns the pair with the highest realized P&L, or nil when no
// trade has been closed yet.
func bestPair(stats map[market.Pair]*pairStats) *pairStats {
	var best *pairStats
	for _, s := range stats {
		if s.wins+s.losses == 0 {
			continue
		}
		if best == nil || s.netPL > best.netPL {
			best = s
		}
	}
	return best
}

// narrative renders the plain-text degraded-analysis report persisted as
// the pass transcript.
func narrative(snap *market.Snapshot, stats map[market.Pair]*pairStats, winRate float64, out *RawOutput) string {
	var b strings.Builder

	b.WriteString("=== Degraded local analysis ===\n\n")
	fmt.Fprintf(&b, "Portfolio value (approx, %s): %s\n", market.AccountCurrency, snap.PortfolioValue().Round(2))
	fmt.Fprintf(&b, "Transactions analyzed: %d\n", len(snap.Transactions))

	if len(stats) > 0 {
		ordered := make([]*pairStats, 0, len(stats))
		for _, s := range stats {
			ordered = append(ordered, s)
		}
		sort.Slice(ordered, func(i, j int) bool { return ordered[i].pair < ordered[j].pair })

		b.WriteString("\nRealized performance per pair:\n")
		for _, s := range ordered {
			fmt.Fprintf(&b, "  %s: P&L %.2f (wins %d, losses %d)\n", s.pair, s.netPL, s.wins, s.losses)
		}
		fmt.Fprintf(&b, "Overall win rate: %.0f%%\n", winRate*100)
	} else {
		b.WriteString("\nNo transaction history; nothing to analyze.\n")
	}

	b.WriteString("\nRecommendation: ")
	if out.Direction == Hold {
		b.WriteString("no action\n")
	} else {
		fmt.Fprintf(&b, "%s %s, %s of %s balance (%s)\n",
			out.Direction, out.Pair, out.SizeFraction, out.Pair.Base(), out.Amount)
	}

	b.WriteString("\nNote: the primary analysis engine was unavailable; this is a reduced\n")
	b.WriteString("local analysis of realized trading performance only.\n")

	return b.String()
}
