// Package polling keeps the shared experiment state in sync with the backend
// by polling experiment status until a terminal status is reached.
package polling

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/emiliopalmerini/mlab/internal/domain"
	"github.com/emiliopalmerini/mlab/internal/ports"
)

// DefaultInterval is the polling cadence between settled fetches.
const DefaultInterval = 2 * time.Second

// Publisher receives every state mutation made by the controller.
type Publisher interface {
	SetStatusData(status *domain.ExperimentStatus)
	SetPolling(polling bool)
	SetPollingError(msg string)
	SetResults(results []domain.Result)
	SetOriginalPrompt(prompt string)
	SetLoading(loading bool)
}

// Callbacks are invoked outside of any controller lock.
type Callbacks struct {
	// OnComplete is called exactly once when a terminal status arrives.
	OnComplete func(status *domain.ExperimentStatus)
	// OnError is called for every failed fetch.
	OnError func(msg string)
}

// SessionState is the lifecycle of one polling session.
type SessionState int

const (
	// StateIdle is reported for ids that never had a session.
	StateIdle SessionState = iota
	// StateActive sessions have a pending or in-flight fetch.
	StateActive
	// StateTerminal sessions ended on a terminal status.
	StateTerminal
	// StateStopped sessions were stopped, closed or lost their context.
	StateStopped
)

func (s SessionState) String() string {
	switch s {
	case StateActive:
		return "active"
	case StateTerminal:
		return "terminal"
	case StateStopped:
		return "stopped"
	default:
		return "idle"
	}
}

type session struct {
	id     string
	state  SessionState
	cancel context.CancelFunc
	cb     Callbacks
}

// Controller owns at most one active session per experiment id.
type Controller struct {
	client    ports.StatusClient
	pub       Publisher
	interval  time.Duration
	scheduler Scheduler
	log       logrus.FieldLogger
	metrics   ports.PollMetrics

	// publishMu is held across the liveness check and the publication, and by
	// Stop/Close while they flip state, so nothing is published once they return.
	publishMu sync.Mutex

	mu       sync.Mutex
	sessions map[string]*session
	closed   bool

	wg sync.WaitGroup
}

// Option configures a Controller.
type Option func(*Controller)

// WithInterval sets the delay between fetches. Non-positive values are ignored.
func WithInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithScheduler replaces the timer source, mainly for tests.
func WithScheduler(s Scheduler) Option {
	return func(c *Controller) {
		if s != nil {
			c.scheduler = s
		}
	}
}

// WithLogger sets the logger used for session lifecycle events.
func WithLogger(l logrus.FieldLogger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// WithMetrics records every fetch and terminal transition to m.
func WithMetrics(m ports.PollMetrics) Option {
	return func(c *Controller) {
		if m != nil {
			c.metrics = m
		}
	}
}

// New creates a controller publishing into pub.
func New(client ports.StatusClient, pub Publisher, opts ...Option) *Controller {
	c := &Controller{
		client:    client,
		pub:       pub,
		interval:  DefaultInterval,
		scheduler: timerScheduler{},
		log:       logrus.StandardLogger(),
		metrics:   noopMetrics{},
		sessions:  make(map[string]*session),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Interval returns the configured polling cadence.
func (c *Controller) Interval() time.Duration { return c.interval }

// Start begins polling experimentID. It returns false without doing anything
// when a session for the id is already active or the controller is closed.
func (c *Controller) Start(ctx context.Context, experimentID string, cb Callbacks) bool {
	if experimentID == "" {
		return false
	}

	c.publishMu.Lock()
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		c.publishMu.Unlock()
		return false
	}
	if s, ok := c.sessions[experimentID]; ok && s.state == StateActive {
		c.mu.Unlock()
		c.publishMu.Unlock()
		return false
	}

	sctx, cancel := context.WithCancel(ctx)
	s := &session{id: experimentID, state: StateActive, cancel: cancel, cb: cb}
	c.sessions[experimentID] = s
	c.wg.Add(1)
	c.mu.Unlock()

	c.pub.SetPolling(true)
	c.pub.SetPollingError("")
	c.publishMu.Unlock()

	c.log.WithFields(logrus.Fields{
		"experiment_id": experimentID,
		"interval":      c.interval,
	}).Info("polling started")

	go c.run(sctx, s)
	return true
}

// Stop moves the session for experimentID to Stopped. Safe to call repeatedly.
func (c *Controller) Stop(experimentID string) {
	c.publishMu.Lock()
	defer c.publishMu.Unlock()

	c.mu.Lock()
	s, ok := c.sessions[experimentID]
	if !ok || s.state == StateStopped {
		c.mu.Unlock()
		return
	}
	wasActive := s.state == StateActive
	s.state = StateStopped
	s.cancel()
	c.mu.Unlock()

	if wasActive {
		c.pub.SetPolling(false)
		c.log.WithField("experiment_id", experimentID).Info("polling stopped")
	}
}

// Close tears the controller down. Every session is stopped and nothing is
// published afterwards, including results of fetches still in flight.
func (c *Controller) Close() {
	c.publishMu.Lock()
	defer c.publishMu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	for _, s := range c.sessions {
		if s.state == StateActive {
			s.state = StateStopped
		}
		s.cancel()
	}
}

// Wait blocks until every session goroutine has returned.
func (c *Controller) Wait() {
	c.wg.Wait()
}

// State returns the lifecycle state of the session for experimentID.
func (c *Controller) State(experimentID string) SessionState {
	c.mu.Lock()
	defer c.mu.Unlock()
	if s, ok := c.sessions[experimentID]; ok {
		return s.state
	}
	return StateIdle
}

// IsActive reports whether experimentID is being polled.
func (c *Controller) IsActive(experimentID string) bool {
	return c.State(experimentID) == StateActive
}

// ActiveSessions lists the ids currently being polled.
func (c *Controller) ActiveSessions() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make([]string, 0, len(c.sessions))
	for id, s := range c.sessions {
		if s.state == StateActive {
			ids = append(ids, id)
		}
	}
	return ids
}

func (c *Controller) run(ctx context.Context, s *session) {
	defer c.wg.Done()
	defer c.finish(s)

	for {
		if done := c.poll(ctx, s); done {
			return
		}

		tick, stop := c.scheduler.After(c.interval)
		select {
		case <-ctx.Done():
			stop()
			return
		case <-tick:
		}
	}
}

// poll performs one fetch and publishes its outcome. It returns true when
// the session must not schedule another tick.
func (c *Controller) poll(ctx context.Context, s *session) bool {
	if !c.live(s) {
		return true
	}

	log := c.log.WithField("experiment_id", s.id)
	start := time.Now()
	status, err := c.client.FetchStatus(ctx, s.id)
	elapsed := time.Since(start)

	if err != nil {
		if ctx.Err() != nil {
			return true
		}
		c.metrics.RecordPoll(ctx, s.id, "", elapsed, err)

		msg := err.Error()
		delivered := c.publish(s, func() {
			c.pub.SetPollingError(msg)
			c.pub.SetLoading(false)
		})
		if !delivered {
			return true
		}
		log.WithError(err).Warn("status fetch failed, retrying on next tick")
		if s.cb.OnError != nil {
			s.cb.OnError(msg)
		}
		return false
	}

	c.metrics.RecordPoll(ctx, s.id, status.Status, elapsed, nil)
	terminal := status.Status.IsTerminal()

	delivered := c.publishStatus(s, status, terminal)
	if !delivered {
		return true
	}
	if !terminal {
		log.WithField("status", status.Status).Debug("experiment still in progress")
		return false
	}

	c.metrics.RecordTerminal(ctx, s.id, status.Status)
	log.WithFields(logrus.Fields{
		"status":    status.Status,
		"responses": len(status.Responses),
	}).Info("experiment reached terminal status")
	if s.cb.OnComplete != nil {
		s.cb.OnComplete(status.Clone())
	}
	return true
}

func (c *Controller) publishStatus(s *session, status *domain.ExperimentStatus, terminal bool) bool {
	c.publishMu.Lock()
	defer c.publishMu.Unlock()

	c.mu.Lock()
	if c.closed || s.state != StateActive {
		c.mu.Unlock()
		return false
	}
	if terminal {
		s.state = StateTerminal
	}
	c.mu.Unlock()

	c.pub.SetStatusData(status.Clone())
	c.pub.SetPollingError("")
	if !terminal {
		return true
	}

	c.pub.SetPolling(false)
	if status.Status == domain.StatusCompleted {
		c.pub.SetResults(domain.ResultsFromResponses(status.Responses))
		c.pub.SetOriginalPrompt(status.OriginalMessage)
	}
	c.pub.SetLoading(false)
	return true
}

func (c *Controller) publish(s *session, fn func()) bool {
	c.publishMu.Lock()
	defer c.publishMu.Unlock()
	if !c.live(s) {
		return false
	}
	fn()
	return true
}

// finish releases the session context. A session whose parent context was
// cancelled without Stop is marked Stopped so it can be started again, and
// its polling flag is cleared unless the controller is closed.
func (c *Controller) finish(s *session) {
	s.cancel()

	c.publishMu.Lock()
	defer c.publishMu.Unlock()

	c.mu.Lock()
	orphaned := s.state == StateActive
	if orphaned {
		s.state = StateStopped
	}
	closed := c.closed
	c.mu.Unlock()

	if orphaned && !closed {
		c.pub.SetPolling(false)
		c.log.WithField("experiment_id", s.id).Info("polling stopped by context")
	}
}

func (c *Controller) live(s *session) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return !c.closed && s.state == StateActive
}

type noopMetrics struct{}

func (noopMetrics) RecordPoll(context.Context, string, domain.StatusValue, time.Duration, error) {}
func (noopMetrics) RecordTerminal(context.Context, string, domain.StatusValue)                 {}
func (noopMetrics) Close(context.Context) error                                                 { return nil }
