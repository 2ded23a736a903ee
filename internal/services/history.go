package services

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/edgetier/edgetier-ai-go/internal/models"
	"github.com/edgetier/edgetier-ai-go/internal/utils"
)

// HistoryLoader reads historical events from CSV or JSON files, validates
// their shape, orders them chronologically and de-duplicates by event id.
// Missing or corrupt files fail fast with an UpstreamDataError; zero data is
// never silently substituted.
type HistoryLoader struct {
	logger *logrus.Logger
}

// NewHistoryLoader creates a history loader.
func NewHistoryLoader(logger *logrus.Logger) *HistoryLoader {
	return &HistoryLoader{logger: logger}
}

// Load reads events from path, dispatching on the file extension
// (.csv or .json).
func (l *HistoryLoader) Load(path string) ([]models.Event, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".csv":
		return l.LoadCSV(path)
	case ".json":
		return l.LoadJSON(path)
	default:
		return nil, utils.NewValidationErrorf("unsupported historical data format: %s", filepath.Ext(path))
	}
}

// LoadJSON reads a JSON array of events.
func (l *HistoryLoader) LoadJSON(path string) ([]models.Event, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, utils.NewUpstreamDataErrorf(path, "failed to read historical data: %v", err)
	}

	var events []models.Event
	if err := json.Unmarshal(data, &events); err != nil {
		return nil, utils.NewUpstreamDataErrorf(path, "corrupt historical data: %v", err)
	}

	return l.normalize(path, events)
}

// csvColumns is the expected header of a historical events CSV.
var csvColumns = []string{
	"id", "date", "home_team", "away_team",
	"home_wins", "home_losses", "home_points_for", "home_points_against", "home_form",
	"away_wins", "away_losses", "away_points_for", "away_points_against", "away_form",
	"home_moneyline", "away_moneyline",
	"winner", "home_score", "away_score",
}

// LoadCSV reads a historical events CSV with the csvColumns header. Form
// sequences are pipe-separated ("W|L|W"); moneyline cells may be empty for an
// unquoted side.
func (l *HistoryLoader) LoadCSV(path string) ([]models.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, utils.NewUpstreamDataErrorf(path, "failed to open historical data: %v", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, utils.NewUpstreamDataErrorf(path, "corrupt historical data: %v", err)
	}
	if len(rows) == 0 {
		return nil, utils.NewUpstreamDataError(path, "historical data file has no header row")
	}

	header := rows[0]
	if len(header) != len(csvColumns) {
		return nil, utils.NewUpstreamDataErrorf(path, "expected %d columns, got %d", len(csvColumns), len(header))
	}
	for i, col := range csvColumns {
		if strings.TrimSpace(header[i]) != col {
			return nil, utils.NewUpstreamDataErrorf(path, "unexpected column %d: want %q, got %q", i, col, header[i])
		}
	}

	events := make([]models.Event, 0, len(rows)-1)
	for n, row := range rows[1:] {
		event, err := parseCSVRow(row)
		if err != nil {
			return nil, utils.NewUpstreamDataErrorf(path, "row %d: %v", n+2, err)
		}
		events = append(events, event)
	}

	return l.normalize(path, events)
}

// normalize validates, sorts chronologically and de-duplicates by id (first
// occurrence wins).
func (l *HistoryLoader) normalize(source string, events []models.Event) ([]models.Event, error) {
	for _, event := range events {
		if err := validateHistorical(event); err != nil {
			return nil, utils.NewUpstreamDataErrorf(source, "event %q: %v", event.ID, err)
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		return events[i].StartTime.Before(events[j].StartTime)
	})

	seen := make(map[string]bool, len(events))
	deduped := events[:0]
	for _, event := range events {
		if seen[event.ID] {
			l.logger.WithField("event_id", event.ID).Warn("Duplicate event id in historical data, keeping first occurrence")
			continue
		}
		seen[event.ID] = true
		deduped = append(deduped, event)
	}

	l.logger.WithFields(logrus.Fields{
		"source": source,
		"events": len(deduped),
	}).Info("Loaded historical events")

	return deduped, nil
}

func validateHistorical(event models.Event) error {
	if event.ID == "" {
		return fmt.Errorf("missing id")
	}
	if event.StartTime.IsZero() {
		return fmt.Errorf("missing start time")
	}
	if event.Outcome == nil {
		return fmt.Errorf("missing realized outcome")
	}
	if event.Outcome.Winner != models.SideHome && event.Outcome.Winner != models.SideAway {
		return fmt.Errorf("invalid outcome winner %q", event.Outcome.Winner)
	}
	if len(event.HomeStats.RecentForm) == 0 || len(event.AwayStats.RecentForm) == 0 {
		return fmt.Errorf("empty recent-form sequence")
	}
	if event.HomeMoneyline == nil && event.AwayMoneyline == nil {
		return fmt.Errorf("no market odds on either side")
	}
	return nil
}

func parseCSVRow(row []string) (models.Event, error) {
	if len(row) != len(csvColumns) {
		return models.Event{}, fmt.Errorf("expected %d fields, got %d", len(csvColumns), len(row))
	}

	startTime, err := time.Parse(time.RFC3339, row[1])
	if err != nil {
		return models.Event{}, fmt.Errorf("invalid date %q: %v", row[1], err)
	}

	homeStats, err := parseTeamStats(row[4], row[5], row[6], row[7], row[8])
	if err != nil {
		return models.Event{}, fmt.Errorf("home stats: %v", err)
	}
	awayStats, err := parseTeamStats(row[9], row[10], row[11], row[12], row[13])
	if err != nil {
		return models.Event{}, fmt.Errorf("away stats: %v", err)
	}

	homeML, err := parseOptionalFloat(row[14])
	if err != nil {
		return models.Event{}, fmt.Errorf("home moneyline: %v", err)
	}
	awayML, err := parseOptionalFloat(row[15])
	if err != nil {
		return models.Event{}, fmt.Errorf("away moneyline: %v", err)
	}

	homeScore, err := strconv.Atoi(strings.TrimSpace(row[17]))
	if err != nil {
		return models.Event{}, fmt.Errorf("invalid home score %q", row[17])
	}
	awayScore, err := strconv.Atoi(strings.TrimSpace(row[18]))
	if err != nil {
		return models.Event{}, fmt.Errorf("invalid away score %q", row[18])
	}

	return models.Event{
		ID:            strings.TrimSpace(row[0]),
		StartTime:     startTime.UTC(),
		HomeTeam:      strings.TrimSpace(row[2]),
		AwayTeam:      strings.TrimSpace(row[3]),
		HomeStats:     homeStats,
		AwayStats:     awayStats,
		HomeMoneyline: homeML,
		AwayMoneyline: awayML,
		Outcome: &models.Outcome{
			Winner:    models.Side(strings.TrimSpace(row[16])),
			HomeScore: homeScore,
			AwayScore: awayScore,
		},
	}, nil
}

func parseTeamStats(wins, losses, pointsFor, pointsAgainst, form string) (models.TeamStats, error) {
	w, err := strconv.Atoi(strings.TrimSpace(wins))
	if err != nil {
		return models.TeamStats{}, fmt.Errorf("invalid wins %q", wins)
	}
	l, err := strconv.Atoi(strings.TrimSpace(losses))
	if err != nil {
		return models.TeamStats{}, fmt.Errorf("invalid losses %q", losses)
	}
	pf, err := strconv.ParseFloat(strings.TrimSpace(pointsFor), 64)
	if err != nil {
		return models.TeamStats{}, fmt.Errorf("invalid points-for %q", pointsFor)
	}
	pa, err := strconv.ParseFloat(strings.TrimSpace(pointsAgainst), 64)
	if err != nil {
		return models.TeamStats{}, fmt.Errorf("invalid points-against %q", pointsAgainst)
	}

	var recentForm []string
	for _, r := range strings.Split(strings.TrimSpace(form), "|") {
		if r = strings.TrimSpace(r); r != "" {
			recentForm = append(recentForm, r)
		}
	}

	return models.TeamStats{
		Wins:          w,
		Losses:        l,
		PointsFor:     pf,
		PointsAgainst: pa,
		RecentForm:    recentForm,
	}, nil
}

func parseOptionalFloat(cell string) (*float64, error) {
	cell = strings.TrimSpace(cell)
	if cell == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(cell, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid number %q", cell)
	}
	return &v, nil
}
