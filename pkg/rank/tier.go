package rank

import "strconv"

// Tier is the display severity of a cluster score.
type Tier string

const (
	TierHigh   Tier = "high"
	TierMedium Tier = "medium"
	TierLow    Tier = "low"
	TierZero   Tier = "zero"
)

// Tier band lower bounds, inclusive.
const (
	HighThreshold   = 30.0
	MediumThreshold = 15.0
)

// ZeroText is the canonical display of an exact zero score.
const ZeroText = "0.000"

// Formatted is a score classified for display.
type Formatted struct {
	Tier        Tier   `json:"tier"`
	DisplayText string `json:"display"`
}

// FormatTier classifies points and picks the text to show for them.
// An exact zero always displays as ZeroText, whatever the upstream
// formatting was; every other value keeps the formatted string.
func FormatTier(points float64, formatted string) Formatted {
	if points == 0 {
		return Formatted{Tier: TierZero, DisplayText: ZeroText}
	}

	text := formatted
	if text == "" {
		text = strconv.FormatFloat(points, 'f', 3, 64)
	}

	switch {
	case points >= HighThreshold:
		return Formatted{Tier: TierHigh, DisplayText: text}
	case points >= MediumThreshold:
		return Formatted{Tier: TierMedium, DisplayText: text}
	default:
		return Formatted{Tier: TierLow, DisplayText: text}
	}
}
