// Package scenario enumerates feasible supplier combinations for a project,
// prices each one through the assignment and margin engines and ranks them.
package scenario

import (
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/iwvelando/steel-estimate/internal/assign"
	"github.com/iwvelando/steel-estimate/internal/margin"
	"github.com/iwvelando/steel-estimate/pkg/constants"
	"github.com/iwvelando/steel-estimate/pkg/pricing"
)

var idNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("steel-estimate/scenario"))

// Scenario is one fully priced, margin-enforced supplier combination.
type Scenario struct {
	ID        string `json:"id"`
	Signature string `json:"signature"`
	Label     string `json:"label"`

	DeckAssignments []assign.Assignment    `json:"deckAssignments"`
	JoistVendor     string                 `json:"joistVendor,omitempty"`
	Joist           assign.JoistAssignment `json:"joist"`
	Participants    []margin.Participant   `json:"participants"`
	TopUp           margin.TopUp           `json:"topUp"`

	Tons           float64 `json:"tons"`
	ComplexityTier string  `json:"complexityTier,omitempty"`

	CostSubtotal    float64  `json:"costSubtotal"`
	MarginTotal     float64  `json:"marginTotal"`
	AccessoriesCost float64  `json:"accessoriesCost"`
	Subtotal        float64  `json:"subtotal"`
	DetailingAmount float64  `json:"detailingAmount"`
	FinalTotal      float64  `json:"finalTotal"`
	LeadTime        LeadTime `json:"leadTime"`

	Applied bool `json:"applied,omitempty"`
	Boosted bool `json:"boosted,omitempty"`
}

// Clone returns a deep copy that shares no slices with s.
func (s Scenario) Clone() Scenario {
	out := s
	if s.DeckAssignments != nil {
		out.DeckAssignments = make([]assign.Assignment, len(s.DeckAssignments))
		copy(out.DeckAssignments, s.DeckAssignments)
	}
	if s.Participants != nil {
		out.Participants = make([]margin.Participant, len(s.Participants))
		copy(out.Participants, s.Participants)
	}
	return out
}

// Retotal recomputes the cost, margin and price rollups from the
// participants. Price rollups are rounded to cents. A nil fee leaves the
// detailing amount at zero.
func (s *Scenario) Retotal(fee FeeFunc) {
	cost, marginTotal := 0.0, 0.0
	for _, p := range s.Participants {
		cost += p.SubtotalCost
		marginTotal += p.MarginAmount
	}
	s.CostSubtotal = cost
	s.MarginTotal = marginTotal
	s.Subtotal = pricing.RoundCents(cost + marginTotal + s.AccessoriesCost)
	s.DetailingAmount = 0
	if fee != nil {
		s.DetailingAmount = pricing.RoundCents(fee(s.Subtotal, s.Tons, s.ComplexityTier))
	}
	s.FinalTotal = pricing.RoundCents(s.Subtotal + s.DetailingAmount)
}

// DeckVendors returns the distinct deck suppliers, sorted.
func (s Scenario) DeckVendors() []string {
	seen := make(map[string]bool)
	var vendors []string
	for _, a := range s.DeckAssignments {
		if !seen[a.Vendor] {
			seen[a.Vendor] = true
			vendors = append(vendors, a.Vendor)
		}
	}
	sort.Strings(vendors)
	return vendors
}

// UsesOnly reports whether every deck line and the joists (when in scope) go
// to supplier.
func (s Scenario) UsesOnly(supplier string) bool {
	if len(s.DeckAssignments) == 0 && s.JoistVendor == "" {
		return false
	}
	for _, a := range s.DeckAssignments {
		if a.Vendor != supplier {
			return false
		}
	}
	return s.JoistVendor == "" || s.JoistVendor == supplier
}

// DeckParticipant returns the index of the deck participant for supplier.
func (s Scenario) DeckParticipant(supplier string) (int, bool) {
	for i, p := range s.Participants {
		if p.Supplier == supplier && p.Category != constants.CategoryJoists {
			return i, true
		}
	}
	return -1, false
}

// Signature is the canonical identity of an assignment: sorted
// lineId:vendor pairs followed by the joist vendor.
func Signature(vendorByLine map[string]string, joistVendor string) string {
	pairs := make([]string, 0, len(vendorByLine))
	for lineID, vendor := range vendorByLine {
		pairs = append(pairs, lineID+":"+vendor)
	}
	sort.Strings(pairs)
	return strings.Join(pairs, ",") + "|joist:" + joistVendor
}

// IDFor derives the stable scenario ID from a signature.
func IDFor(signature string) string {
	return uuid.NewSHA1(idNamespace, []byte(signature)).String()
}

// Find returns the scenario with the given ID.
func Find(scenarios []Scenario, id string) (int, bool) {
	for i := range scenarios {
		if scenarios[i].ID == id {
			return i, true
		}
	}
	return -1, false
}

// Sort orders scenarios by final total, then by larger margin, then by
// signature. A scenario whose ID matches appliedID is moved to the front.
func Sort(scenarios []Scenario, appliedID string) {
	sort.SliceStable(scenarios, func(i, j int) bool {
		a, b := scenarios[i], scenarios[j]
		if a.FinalTotal != b.FinalTotal {
			return a.FinalTotal < b.FinalTotal
		}
		if a.MarginTotal != b.MarginTotal {
			return a.MarginTotal > b.MarginTotal
		}
		return a.Signature < b.Signature
	})
	if appliedID == "" {
		return
	}
	idx, ok := Find(scenarios, appliedID)
	if !ok {
		return
	}
	pinned := scenarios[idx]
	pinned.Applied = true
	copy(scenarios[1:idx+1], scenarios[:idx])
	scenarios[0] = pinned
}
