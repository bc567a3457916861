// Package play implements the player-side session state machine. A machine
// owns three polling loops (lobby status, active question, countdown) and
// infers the session phase purely from what the session service returns:
// there is no push channel, and the server clock is authoritative.
package play

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/quizwire/quizwire/internal/api"
	"github.com/quizwire/quizwire/internal/domain"
	"github.com/quizwire/quizwire/internal/errors"
	"github.com/quizwire/quizwire/internal/event"
	"github.com/quizwire/quizwire/internal/poll"
	"github.com/quizwire/quizwire/internal/store"
)

const (
	defaultStatusInterval    = 2 * time.Second
	defaultQuestionInterval  = 2 * time.Second
	defaultCountdownInterval = time.Second
)

type Config struct {
	API   *api.Client
	Store *store.Store
	Bus   *event.Bus

	StatusInterval    time.Duration
	QuestionInterval  time.Duration
	CountdownInterval time.Duration

	// Now and NewTicker are injectable for deterministic tests.
	Now       func() time.Time
	NewTicker func(d time.Duration) poll.Ticker
}

// Machine is one player's view of one session. It starts in the join phase
// and only ever moves forward; a different session needs a new Machine.
type Machine struct {
	c Config

	ctx    context.Context
	cancel context.CancelFunc

	mu          sync.Mutex
	phase       domain.Phase
	sessionID   int
	playerID    int64
	question    domain.Question
	hasQuestion bool
	selected    []int64
	revealFired bool
	correct     []int64
	results     []domain.PlayerResult

	statusTask    *poll.Task
	questionTask  *poll.Task
	countdownTask *poll.Task
}

func NewMachine(c Config) *Machine {
	if c.StatusInterval <= 0 {
		c.StatusInterval = defaultStatusInterval
	}
	if c.QuestionInterval <= 0 {
		c.QuestionInterval = defaultQuestionInterval
	}
	if c.CountdownInterval <= 0 {
		c.CountdownInterval = defaultCountdownInterval
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	if c.NewTicker == nil {
		c.NewTicker = poll.NewTicker
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Machine{
		c:      c,
		ctx:    ctx,
		cancel: cancel,
		phase:  domain.PhaseJoin,
	}
}

// Join enters the session, either by registering a new player or by resuming
// a stored identity for the same session id, and begins polling for the game
// start. A join rejected by the service (session already running) is returned
// to the caller without any state change.
func (m *Machine) Join(ctx context.Context, sessionID int, name string) error {
	m.mu.Lock()
	if m.phase != domain.PhaseJoin {
		m.mu.Unlock()
		return errors.New(errors.CodeAlreadyExists,
			errors.WithMessagef("already joined session %d", m.sessionID))
	}
	m.mu.Unlock()

	playerID, resumed := int64(0), false
	if m.c.Store != nil {
		playerID, resumed = m.c.Store.PlayerFor(sessionID)
	}

	if !resumed {
		id, err := m.c.API.Join(ctx, sessionID, name)
		if err != nil {
			return err
		}
		playerID = id

		if m.c.Store != nil {
			if err := m.c.Store.SavePlayer(sessionID, playerID); err != nil {
				slog.Warn("play: persist player identity failed", "error", err)
			}
		}
	}

	m.mu.Lock()
	m.sessionID = sessionID
	m.playerID = playerID
	m.phase = domain.PhaseWaiting
	m.statusTask = poll.Start(m.ctx, poll.Config{
		Interval:  m.c.StatusInterval,
		NewTicker: m.c.NewTicker,
		Immediate: true,
	}, m.pollStatus)
	m.mu.Unlock()

	m.publish(domain.EventPhaseChanged{SessionID: sessionID, From: domain.PhaseJoin, To: domain.PhaseWaiting})
	slog.Info("play: joined session", "session", sessionID, "player", playerID, "resumed", resumed)
	return nil
}

// Select applies a local selection change and pushes the full selection to
// the service. For single and judgement questions the choice replaces the
// selection; for multiple it toggles membership. Once the question is closed
// the selection is frozen and Select fails.
func (m *Machine) Select(ctx context.Context, answerID int64) error {
	m.mu.Lock()
	if m.phase != domain.PhasePlaying || m.revealFired || !m.hasQuestion {
		m.mu.Unlock()
		return errors.New(errors.CodeInvalidArgument,
			errors.WithMessagef("no open question to answer"))
	}

	switch m.question.Type {
	case domain.QuestionMultiple:
		m.selected = toggle(m.selected, answerID)
	default:
		m.selected = []int64{answerID}
	}

	sel := append([]int64(nil), m.selected...)
	playerID := m.playerID
	m.mu.Unlock()

	if err := m.c.API.SubmitAnswer(ctx, playerID, sel); err != nil {
		// The local selection stands; the next change resubmits the full set.
		slog.Warn("play: submit answer failed", "player", playerID, "error", err)
		return err
	}

	return nil
}

// Phase returns the current phase.
func (m *Machine) Phase() domain.Phase {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.phase
}

// Question returns the active question, if one has been fetched.
func (m *Machine) Question() (domain.Question, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.question, m.hasQuestion
}

// Selected returns the player's current selection.
func (m *Machine) Selected() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.selected...)
}

// CorrectAnswers returns the revealed correct answer ids, once known.
func (m *Machine) CorrectAnswers() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.correct...)
}

// Results returns the final results payload after the session finished.
func (m *Machine) Results() []domain.PlayerResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.results
}

// Remaining derives the seconds left on the active question from the
// authoritative start timestamp, clamped at zero. Re-deriving on every call
// means a suspended or late-joining client converges instead of drifting.
func (m *Machine) Remaining() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.hasQuestion {
		return 0
	}
	return remaining(m.question, m.c.Now())
}

// Close stops all polling loops. The machine is unusable afterwards.
func (m *Machine) Close() {
	m.cancel()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.stopTasksLocked()
}

func (m *Machine) pollStatus(ctx context.Context) {
	m.mu.Lock()
	if m.phase != domain.PhaseWaiting {
		m.mu.Unlock()
		return
	}
	playerID := m.playerID
	m.mu.Unlock()

	started, err := m.c.API.Status(ctx, playerID)
	if err != nil {
		if errors.IsSessionOver(err) {
			m.finish(ctx)
			return
		}
		slog.Debug("play: status poll failed", "player", playerID, "error", err)
		return
	}
	if !started {
		return
	}

	m.mu.Lock()
	if m.phase != domain.PhaseWaiting {
		m.mu.Unlock()
		return
	}
	m.phase = domain.PhasePlaying
	if m.statusTask != nil {
		m.statusTask.Stop()
	}
	m.questionTask = poll.Start(m.ctx, poll.Config{
		Interval:  m.c.QuestionInterval,
		NewTicker: m.c.NewTicker,
		Immediate: true,
	}, m.pollQuestion)
	sessionID := m.sessionID
	m.mu.Unlock()

	m.publish(domain.EventPhaseChanged{SessionID: sessionID, From: domain.PhaseWaiting, To: domain.PhasePlaying})
}

func (m *Machine) pollQuestion(ctx context.Context) {
	m.mu.Lock()
	if m.phase != domain.PhasePlaying && m.phase != domain.PhaseReveal {
		m.mu.Unlock()
		return
	}
	playerID := m.playerID
	last, has := m.question.StartedAt, m.hasQuestion
	m.mu.Unlock()

	q, err := m.c.API.Question(ctx, playerID)
	if err != nil {
		// A definitive 4xx here is the session-end signal: the question
		// endpoint is gone, so move to finished and collect results.
		if errors.IsSessionOver(err) {
			m.finish(ctx)
			return
		}
		slog.Debug("play: question poll failed", "player", playerID, "error", err)
		return
	}

	if has && q.StartedAt.Equal(last) {
		return
	}

	m.startQuestion(q)
}

func (m *Machine) startQuestion(q domain.Question) {
	m.mu.Lock()
	if m.phase != domain.PhasePlaying && m.phase != domain.PhaseReveal {
		m.mu.Unlock()
		return
	}

	from := m.phase
	m.question = q
	m.hasQuestion = true
	m.selected = nil
	m.correct = nil
	m.revealFired = false
	m.phase = domain.PhasePlaying

	if m.countdownTask != nil {
		m.countdownTask.Stop()
	}
	m.countdownTask = poll.Start(m.ctx, poll.Config{
		Interval:  m.c.CountdownInterval,
		NewTicker: m.c.NewTicker,
		Immediate: true,
	}, m.tickCountdown)
	sessionID := m.sessionID
	m.mu.Unlock()

	if from == domain.PhaseReveal {
		m.publish(domain.EventPhaseChanged{SessionID: sessionID, From: from, To: domain.PhasePlaying})
	}
	m.publish(domain.EventQuestionChanged{SessionID: sessionID, Question: q})
}

func (m *Machine) tickCountdown(ctx context.Context) {
	m.mu.Lock()
	if m.phase != domain.PhasePlaying || !m.hasQuestion || m.revealFired {
		m.mu.Unlock()
		return
	}
	rem := remaining(m.question, m.c.Now())
	m.mu.Unlock()

	if rem > 0 {
		return
	}

	m.reveal(ctx)
}

// reveal closes the active question exactly once: the revealFired guard makes
// racing countdown ticks and termination detection converge on a single
// transition.
func (m *Machine) reveal(ctx context.Context) {
	m.mu.Lock()
	if m.phase != domain.PhasePlaying || m.revealFired {
		m.mu.Unlock()
		return
	}
	m.revealFired = true
	m.phase = domain.PhaseReveal
	if m.countdownTask != nil {
		m.countdownTask.Stop()
	}
	playerID, sessionID := m.playerID, m.sessionID
	m.mu.Unlock()

	m.publish(domain.EventPhaseChanged{SessionID: sessionID, From: domain.PhasePlaying, To: domain.PhaseReveal})

	ids, err := m.c.API.CorrectAnswers(ctx, playerID)
	if err != nil {
		if errors.IsSessionOver(err) {
			m.finish(ctx)
			return
		}
		slog.Warn("play: fetch correct answers failed", "player", playerID, "error", err)
		ids = nil
	}

	m.mu.Lock()
	if m.phase == domain.PhaseReveal {
		m.correct = ids
	}
	m.mu.Unlock()

	m.publish(domain.EventRevealed{SessionID: sessionID, CorrectAnswers: ids})
}

// finish is the terminal transition. It may be reached from any polling
// phase; the first caller wins and later signals are no-ops.
func (m *Machine) finish(ctx context.Context) {
	m.mu.Lock()
	if m.phase == domain.PhaseFinished || m.phase == domain.PhaseJoin {
		m.mu.Unlock()
		return
	}
	from := m.phase
	m.phase = domain.PhaseFinished
	m.stopTasksLocked()
	playerID, sessionID := m.playerID, m.sessionID
	m.mu.Unlock()

	m.publish(domain.EventPhaseChanged{SessionID: sessionID, From: from, To: domain.PhaseFinished})

	results, err := m.c.API.Results(ctx, playerID)
	if err != nil {
		slog.Warn("play: fetch results failed", "player", playerID, "error", err)
		if m.c.Store != nil {
			if cached, ok := m.c.Store.ResultsFor(sessionID); ok {
				results = cached
			}
		}
	} else if m.c.Store != nil {
		if err := m.c.Store.SaveResults(sessionID, results); err != nil {
			slog.Warn("play: cache results failed", "session", sessionID, "error", err)
		}
	}

	m.mu.Lock()
	m.results = results
	m.mu.Unlock()

	m.publish(domain.EventFinished{SessionID: sessionID, Results: results})
	slog.Info("play: session finished", "session", sessionID, "player", playerID)
}

func (m *Machine) publish(e event.Event) {
	if m.c.Bus != nil {
		m.c.Bus.Publish(m.ctx, e)
	}
}

func (m *Machine) stopTasksLocked() {
	for _, t := range []*poll.Task{m.statusTask, m.questionTask, m.countdownTask} {
		if t != nil {
			t.Stop()
		}
	}
}

func remaining(q domain.Question, now time.Time) int {
	elapsed := int(now.Sub(q.StartedAt) / time.Second)
	rem := q.Duration - elapsed
	if rem < 0 {
		return 0
	}
	return rem
}

func toggle(ids []int64, id int64) []int64 {
	for i, v := range ids {
		if v == id {
			return append(ids[:i], ids[i+1:]...)
		}
	}
	return append(ids, id)
}
