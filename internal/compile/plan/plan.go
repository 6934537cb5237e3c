package plan

import (
	"fmt"

	"NNC/internal/layer"
	"NNC/internal/raw"
)

// Strategy selects how every layer of a network becomes C.
type Strategy int

const (
	Generic Strategy = iota
	Semi
	Unrolled
	Optimized
)

var StrategyStrings = []string{
	Generic:   "generic",
	Semi:      "semi",
	Unrolled:  "unrolled",
	Optimized: "optimized",
}

func (s Strategy) String() string {
	if s < 0 || int(s) >= len(StrategyStrings) {
		return fmt.Sprintf("Strategy(%d)", int(s))
	}
	return StrategyStrings[s]
}

// ParseStrategy accepts the names in StrategyStrings.
func ParseStrategy(s string) (Strategy, bool) {
	for i, name := range StrategyStrings {
		if name == s {
			return Strategy(i), true
		}
	}
	return 0, false
}

// TableDriven reports whether layers read their shapes from the runtime
// parameter table.
func (s Strategy) TableDriven() bool {
	return s == Generic || s == Optimized
}

type Plan struct {
	Config   *raw.Config
	Strategy Strategy
	Net      *layer.Network
}
