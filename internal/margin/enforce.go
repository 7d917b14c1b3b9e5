package margin

import (
	"strings"

	"github.com/iwvelando/steel-estimate/pkg/constants"
	"github.com/iwvelando/steel-estimate/pkg/mathutil"
)

// Participant is one supplier's share of a priced scenario.
type Participant struct {
	Supplier      string  `json:"supplier"`
	Category      string  `json:"category"`
	SubtotalCost  float64 `json:"subtotalCost"`
	MarginPercent float64 `json:"marginPercent"`
	MarginAmount  float64 `json:"marginAmount"`
	// Locked participants carry a user override and are never topped up.
	Locked bool `json:"locked"`
	// Sync, when set, is called with the new margin amount after a top-up.
	// Scenario building uses it to retotal the scenario.
	Sync func(marginAmount float64) `json:"-"`
}

// Total is cost basis plus margin.
func (p Participant) Total() float64 {
	return p.SubtotalCost + p.MarginAmount
}

// TopUp records what minimum-margin enforcement did.
type TopUp struct {
	MinProjectMargin float64 `json:"minProjectMargin"`
	MarginBefore     float64 `json:"marginBefore"`
	MarginAfter      float64 `json:"marginAfter"`
	Shortfall        float64 `json:"shortfall"`
	Supplier         string  `json:"supplier,omitempty"`
	Category         string  `json:"category,omitempty"`
	Applied          bool    `json:"applied"`
}

// TotalMargin sums participant margins.
func TotalMargin(participants []*Participant) float64 {
	total := 0.0
	for _, p := range participants {
		if p != nil {
			total += p.MarginAmount
		}
	}
	return total
}

// EnforceMinProjectMarginByPriority tops the project margin up to
// minProjectMargin. Suppliers are walked in priority order followed by any
// unlisted participants in their given order; the first unlocked
// participant with a positive cost basis absorbs the whole shortfall.
func EnforceMinProjectMarginByPriority(participants []*Participant, minProjectMargin float64, priority []string) TopUp {
	minProjectMargin = mathutil.NonNegative(minProjectMargin)
	before := TotalMargin(participants)
	result := TopUp{
		MinProjectMargin: minProjectMargin,
		MarginBefore:     before,
		MarginAfter:      before,
	}
	if before >= minProjectMargin-constants.CurrencyTolerance/2 {
		return result
	}
	result.Shortfall = minProjectMargin - before

	for _, p := range walkOrder(participants, priority) {
		if p.Locked || p.SubtotalCost <= 0 {
			continue
		}
		p.MarginAmount += result.Shortfall
		p.MarginPercent = mathutil.CalculatePercentage(p.MarginAmount, p.SubtotalCost)
		if p.Sync != nil {
			p.Sync(p.MarginAmount)
		}
		result.Supplier = p.Supplier
		result.Category = p.Category
		result.Applied = true
		result.MarginAfter = TotalMargin(participants)
		break
	}
	return result
}

func walkOrder(participants []*Participant, priority []string) []*Participant {
	ordered := make([]*Participant, 0, len(participants))
	seen := make(map[*Participant]bool, len(participants))
	for _, supplier := range priority {
		for _, p := range participants {
			if p == nil || seen[p] || !strings.EqualFold(p.Supplier, supplier) {
				continue
			}
			ordered = append(ordered, p)
			seen[p] = true
		}
	}
	for _, p := range participants {
		if p != nil && !seen[p] {
			ordered = append(ordered, p)
		}
	}
	return ordered
}
