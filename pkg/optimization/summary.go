// Package optimization provides shared data structures for optimization results.
package optimization

// Summary captures the result of a single margin adjustment.
type Summary struct {
	Scope      string  `json:"scope"`
	TargetName string  `json:"targetName"`
	Supplier   string  `json:"supplier"`
	Field      string  `json:"field"`
	Original   float64 `json:"original"`
	Value      float64 `json:"value"`
	Target     float64 `json:"target"`
	Achieved   float64 `json:"achieved"`
	// Reached is false when clamping kept the result away from Target.
	Reached bool     `json:"reached"`
	Clamped bool     `json:"clamped"`
	Notes   []string `json:"notes,omitempty"`
}
