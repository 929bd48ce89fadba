package service

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

func TestNewNATSPublisherWithoutConnectionIsNop(t *testing.T) {
	publisher := NewNATSPublisher(nil, zerolog.Nop())
	require.IsType(t, NopPublisher{}, publisher)
	require.NoError(t, publisher.Publish(context.Background(), SubjectRoadmapGenerated, RoadmapEvent{Career: "x"}))
}

func TestCalculateTotalPages(t *testing.T) {
	require.Equal(t, 0, calculateTotalPages(0, 20))
	require.Equal(t, 1, calculateTotalPages(20, 20))
	require.Equal(t, 2, calculateTotalPages(21, 20))
	require.Equal(t, 0, calculateTotalPages(5, 0))
	require.Equal(t, 1, normalizePage(-3))
	require.Equal(t, 100, clampPageSize(1000))
}
