package services

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/edgetier/edgetier-ai-go/internal/utils"
)

// BotState is the lifecycle state of a managed trading bot.
type BotState string

const (
	BotRunning BotState = "running"
	BotStopped BotState = "stopped"
)

// BotAction is a control verb accepted by the bot manager.
type BotAction string

const (
	BotActionStart   BotAction = "start"
	BotActionStop    BotAction = "stop"
	BotActionRestart BotAction = "restart"
)

// BotRunner is the loop a bot executes while running. It must return soon
// after ctx is cancelled.
type BotRunner func(ctx context.Context)

// BotStatus is a snapshot of one managed bot.
type BotStatus struct {
	ID        string    `json:"id"`
	State     BotState  `json:"state"`
	ChangedAt time.Time `json:"changed_at"`
}

type managedBot struct {
	status BotStatus
	run    BotRunner
	cancel context.CancelFunc
	// gen invalidates the exit callback of a superseded runner goroutine.
	gen int
}

// BotManager owns the lifecycle of registered bot loops: start launches the
// runner on its own goroutine, stop cancels the runner's context. Control of
// an unregistered bot is a validation error; the registry never auto-creates.
type BotManager struct {
	logger *logrus.Logger

	mu   sync.Mutex
	bots map[string]*managedBot
}

func NewBotManager(logger *logrus.Logger) *BotManager {
	return &BotManager{logger: logger, bots: make(map[string]*managedBot)}
}

// Register adds a runnable bot in the stopped state.
func (m *BotManager) Register(id string, run BotRunner) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bots[id] = &managedBot{
		status: BotStatus{ID: id, State: BotStopped, ChangedAt: time.Now().UTC()},
		run:    run,
	}
}

// Control applies an action to one bot and returns its resulting status.
func (m *BotManager) Control(botID string, action BotAction) (BotStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bot, ok := m.bots[botID]
	if !ok {
		return BotStatus{}, utils.NewValidationErrorf("unknown bot %q", botID)
	}
	return m.applyLocked(bot, action)
}

// ControlAll applies an action to every registered bot and returns the
// resulting statuses in id order.
func (m *BotManager) ControlAll(action BotAction) ([]BotStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	ids := make([]string, 0, len(m.bots))
	for id := range m.bots {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	out := make([]BotStatus, 0, len(ids))
	for _, id := range ids {
		status, err := m.applyLocked(m.bots[id], action)
		if err != nil {
			return nil, err
		}
		out = append(out, status)
	}
	return out, nil
}

func (m *BotManager) applyLocked(bot *managedBot, action BotAction) (BotStatus, error) {
	switch action {
	case BotActionStart:
		m.startLocked(bot)
	case BotActionStop:
		m.stopLocked(bot)
	case BotActionRestart:
		m.stopLocked(bot)
		m.startLocked(bot)
	default:
		return BotStatus{}, utils.NewValidationErrorf("unknown bot action %q", action)
	}

	m.logger.WithFields(logrus.Fields{
		"bot_id": bot.status.ID,
		"action": action,
		"state":  bot.status.State,
	}).Info("Bot control applied")

	return bot.status, nil
}

// startLocked is a no-op on an already running bot.
func (m *BotManager) startLocked(bot *managedBot) {
	if bot.status.State == BotRunning {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	bot.cancel = cancel
	bot.gen++
	bot.status.State = BotRunning
	bot.status.ChangedAt = time.Now().UTC()

	gen := bot.gen
	go func() {
		bot.run(ctx)
		cancel()

		// The runner returned on its own. Reflect that unless a later
		// start or restart already superseded this goroutine.
		m.mu.Lock()
		defer m.mu.Unlock()
		if bot.gen == gen && bot.status.State == BotRunning {
			bot.cancel = nil
			bot.status.State = BotStopped
			bot.status.ChangedAt = time.Now().UTC()
		}
	}()
}

// stopLocked cancels the runner's context. It does not wait for the runner
// goroutine to exit.
func (m *BotManager) stopLocked(bot *managedBot) {
	if bot.status.State != BotRunning {
		return
	}
	bot.cancel()
	bot.cancel = nil
	bot.status.State = BotStopped
	bot.status.ChangedAt = time.Now().UTC()
}

// Status returns the snapshot of one bot.
func (m *BotManager) Status(botID string) (BotStatus, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	bot, ok := m.bots[botID]
	if !ok {
		return BotStatus{}, utils.NewValidationErrorf("unknown bot %q", botID)
	}
	return bot.status, nil
}

// List returns snapshots of every registered bot in id order.
func (m *BotManager) List() []BotStatus {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]BotStatus, 0, len(m.bots))
	for _, bot := range m.bots {
		out = append(out, bot.status)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Shutdown stops every running bot. Called on process shutdown.
func (m *BotManager) Shutdown() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, bot := range m.bots {
		m.stopLocked(bot)
	}
}
