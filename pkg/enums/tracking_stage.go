package enums

import "fmt"

// TrackingStage is the staff-visible fulfillment stage of an order.
// Transitions are deliberately unconstrained so staff can correct mistakes;
// there is no forward-only state machine here.
type TrackingStage string

const (
	TrackingStagePlaced         TrackingStage = "placed"
	TrackingStageConfirmed      TrackingStage = "confirmed"
	TrackingStagePacked         TrackingStage = "packed"
	TrackingStageShipped        TrackingStage = "shipped"
	TrackingStageOutForDelivery TrackingStage = "out_for_delivery"
	TrackingStageDelivered      TrackingStage = "delivered"
	TrackingStageCancelled      TrackingStage = "cancelled"
)

var validTrackingStages = []TrackingStage{
	TrackingStagePlaced,
	TrackingStageConfirmed,
	TrackingStagePacked,
	TrackingStageShipped,
	TrackingStageOutForDelivery,
	TrackingStageDelivered,
	TrackingStageCancelled,
}

// TrackingProgress is the fixed display mapping consumed by customer polling.
type TrackingProgress struct {
	Percent int
	Label   string
}

var trackingProgressByStage = map[TrackingStage]TrackingProgress{
	TrackingStagePlaced:         {Percent: 5, Label: "Placed"},
	TrackingStageConfirmed:      {Percent: 20, Label: "Confirmed"},
	TrackingStagePacked:         {Percent: 40, Label: "Packed"},
	TrackingStageShipped:        {Percent: 65, Label: "Shipped"},
	TrackingStageOutForDelivery: {Percent: 85, Label: "Out for delivery"},
	TrackingStageDelivered:      {Percent: 100, Label: "Delivered"},
	TrackingStageCancelled:      {Percent: 0, Label: "Cancelled"},
}

// String implements fmt.Stringer.
func (s TrackingStage) String() string {
	return string(s)
}

// IsValid reports whether the stage is recognized.
func (s TrackingStage) IsValid() bool {
	for _, candidate := range validTrackingStages {
		if candidate == s {
			return true
		}
	}
	return false
}

// Progress returns the display percentage and label for the stage.
// Unknown stages fall back to the initial "placed" mapping.
func (s TrackingStage) Progress() TrackingProgress {
	if progress, ok := trackingProgressByStage[s]; ok {
		return progress
	}
	return trackingProgressByStage[TrackingStagePlaced]
}

// ParseTrackingStage converts a raw string into a TrackingStage.
func ParseTrackingStage(value string) (TrackingStage, error) {
	for _, candidate := range validTrackingStages {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid tracking stage %q", value)
}
