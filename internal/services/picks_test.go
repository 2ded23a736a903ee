package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgetier/edgetier-ai-go/internal/models"
	"github.com/edgetier/edgetier-ai-go/internal/utils"
)

type stubEventSource struct {
	events []models.Event
	err    error
	calls  int
}

func (s *stubEventSource) UpcomingEvents(_ context.Context) ([]models.Event, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return s.events, nil
}

func upcomingSlate() []models.Event {
	first := strongHomeEvent()
	second := strongHomeEvent()
	second.ID = "evt-2"
	second.HomeTeam = "Celtics"
	return []models.Event{first, second}
}

func TestGetPicksLiveAllocation(t *testing.T) {
	source := &stubEventSource{events: upcomingSlate()}
	service := NewPicksService(source, NewScoringEngine(),
		NewTierAllocator(models.DefaultTierQuotas()), nil, testLogger())

	response, err := service.GetPicks(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "live", response.Source)
	assert.Equal(t, 2, response.Total)
	assert.Equal(t, 1, source.calls)
}

func TestGetPicksSkipsUnscorableEvents(t *testing.T) {
	slate := upcomingSlate()
	slate[1].HomeMoneyline = nil
	slate[1].AwayMoneyline = nil

	source := &stubEventSource{events: slate}
	service := NewPicksService(source, NewScoringEngine(),
		NewTierAllocator(models.DefaultTierQuotas()), nil, testLogger())

	response, err := service.GetPicks(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, response.Total)
}

func TestGetPicksUpstreamFailure(t *testing.T) {
	source := &stubEventSource{err: errors.New("feed down")}
	service := NewPicksService(source, NewScoringEngine(),
		NewTierAllocator(models.DefaultTierQuotas()), nil, testLogger())

	_, err := service.GetPicks(context.Background())
	require.Error(t, err)

	var upstreamErr *utils.UpstreamDataError
	assert.ErrorAs(t, err, &upstreamErr)
}
