package enums

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTrackingStageIsValid(t *testing.T) {
	for _, stage := range validTrackingStages {
		assert.True(t, stage.IsValid(), "stage %s", stage)
	}
	assert.False(t, TrackingStage("lost_in_transit").IsValid())
	assert.False(t, TrackingStage("").IsValid())
}

func TestTrackingStageProgress(t *testing.T) {
	cases := map[TrackingStage]TrackingProgress{
		TrackingStagePlaced:         {Percent: 5, Label: "Placed"},
		TrackingStageConfirmed:      {Percent: 20, Label: "Confirmed"},
		TrackingStagePacked:         {Percent: 40, Label: "Packed"},
		TrackingStageShipped:        {Percent: 65, Label: "Shipped"},
		TrackingStageOutForDelivery: {Percent: 85, Label: "Out for delivery"},
		TrackingStageDelivered:      {Percent: 100, Label: "Delivered"},
		TrackingStageCancelled:      {Percent: 0, Label: "Cancelled"},
	}
	for stage, want := range cases {
		assert.Equal(t, want, stage.Progress(), "stage %s", stage)
	}

	// Unknown stages render as freshly placed rather than erroring.
	assert.Equal(t, TrackingStagePlaced.Progress(), TrackingStage("bogus").Progress())
}

func TestParseTrackingStage(t *testing.T) {
	stage, err := ParseTrackingStage("out_for_delivery")
	require.NoError(t, err)
	assert.Equal(t, TrackingStageOutForDelivery, stage)

	_, err = ParseTrackingStage("OUT_FOR_DELIVERY")
	require.Error(t, err)
}
