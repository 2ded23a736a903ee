package services

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/edgetier/edgetier-ai-go/internal/models"
	"github.com/edgetier/edgetier-ai-go/internal/utils"
)

// FileEventSource serves the upcoming slate from a JSON file the ingestion
// job rewrites. Upcoming events carry no outcome; they only need the fields
// the scoring engine reads.
type FileEventSource struct {
	path   string
	logger *logrus.Logger
}

// NewFileEventSource creates a source reading from path.
func NewFileEventSource(path string, logger *logrus.Logger) *FileEventSource {
	return &FileEventSource{path: path, logger: logger}
}

// UpcomingEvents reads and validates the slate file.
func (s *FileEventSource) UpcomingEvents(ctx context.Context) ([]models.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, utils.NewUpstreamDataErrorf(s.path, "failed to read upcoming events: %v", err)
	}

	var events []models.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, utils.NewUpstreamDataErrorf(s.path, "corrupt upcoming events: %v", err)
	}

	for _, event := range events {
		if err := validateUpcoming(event); err != nil {
			return nil, utils.NewUpstreamDataErrorf(s.path, "event %q: %v", event.ID, err)
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].StartTime.Before(events[j].StartTime)
	})

	s.logger.WithFields(logrus.Fields{
		"source": s.path,
		"events": len(events),
	}).Debug("Loaded upcoming events")

	return events, nil
}

func validateUpcoming(event models.Event) error {
	if event.ID == "" {
		return fmt.Errorf("missing id")
	}
	if event.StartTime.IsZero() {
		return fmt.Errorf("missing start time")
	}
	if len(event.HomeStats.RecentForm) == 0 || len(event.AwayStats.RecentForm) == 0 {
		return fmt.Errorf("empty recent-form sequence")
	}
	if event.HomeMoneyline == nil && event.AwayMoneyline == nil {
		return fmt.Errorf("no market odds on either side")
	}
	return nil
}
