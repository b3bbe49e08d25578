// Package state holds the shared experiment state read by the presentation
// layer and written by the polling controller and explicit user actions.
package state

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/emiliopalmerini/mlab/internal/domain"
	"github.com/emiliopalmerini/mlab/internal/ports"
)

const persistTimeout = 5 * time.Second

// Snapshot is a point-in-time copy of the store. It shares no memory with it.
type Snapshot struct {
	CurrentExperimentID string
	Loading             bool
	Polling             bool
	StatusData          *domain.ExperimentStatus
	PollingError        string
	Results             []domain.Result
	OriginalPrompt      string
}

// Store is a last-write-wins container. Only CurrentExperimentID is persisted.
type Store struct {
	repo ports.SessionStateRepository
	log  logrus.FieldLogger

	mu    sync.RWMutex
	state Snapshot

	subMu       sync.Mutex
	subscribers map[int]chan struct{}
	nextSub     int
}

// NewStore creates an empty store. repo may be nil for memory-only use.
func NewStore(repo ports.SessionStateRepository, log logrus.FieldLogger) *Store {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Store{
		repo:        repo,
		log:         log,
		subscribers: make(map[int]chan struct{}),
	}
}

// Load restores the persisted experiment id so polling can re-attach to it.
func (s *Store) Load(ctx context.Context) (string, error) {
	if s.repo == nil {
		return s.CurrentExperimentID(), nil
	}
	id, err := s.repo.GetCurrentExperimentID(ctx)
	if err != nil {
		return "", err
	}
	s.mu.Lock()
	s.state.CurrentExperimentID = id
	s.mu.Unlock()
	s.notify()
	return id, nil
}

func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap := s.state
	snap.StatusData = s.state.StatusData.Clone()
	if s.state.Results != nil {
		snap.Results = make([]domain.Result, len(s.state.Results))
		copy(snap.Results, s.state.Results)
	}
	return snap
}

func (s *Store) CurrentExperimentID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.CurrentExperimentID
}

// SetCurrentExperimentID updates and persists the current experiment id.
func (s *Store) SetCurrentExperimentID(id string) {
	s.update(func(st *Snapshot) { st.CurrentExperimentID = id })
	s.persist(id)
}

func (s *Store) Loading() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Loading
}

func (s *Store) SetLoading(loading bool) {
	s.update(func(st *Snapshot) { st.Loading = loading })
}

func (s *Store) Polling() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.Polling
}

func (s *Store) SetPolling(polling bool) {
	s.update(func(st *Snapshot) { st.Polling = polling })
}

func (s *Store) StatusData() *domain.ExperimentStatus {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.StatusData.Clone()
}

func (s *Store) SetStatusData(status *domain.ExperimentStatus) {
	status = status.Clone()
	s.update(func(st *Snapshot) { st.StatusData = status })
}

func (s *Store) PollingError() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.PollingError
}

func (s *Store) SetPollingError(msg string) {
	s.update(func(st *Snapshot) { st.PollingError = msg })
}

func (s *Store) Results() []domain.Result {
	return s.Snapshot().Results
}

// SetResults replaces the result list.
func (s *Store) SetResults(results []domain.Result) {
	var cp []domain.Result
	if results != nil {
		cp = make([]domain.Result, len(results))
		copy(cp, results)
	}
	s.update(func(st *Snapshot) { st.Results = cp })
}

func (s *Store) OriginalPrompt() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state.OriginalPrompt
}

func (s *Store) SetOriginalPrompt(prompt string) {
	s.update(func(st *Snapshot) { st.OriginalPrompt = prompt })
}

// Reset restores every field to its zero value and clears the persisted id.
func (s *Store) Reset() {
	s.update(func(st *Snapshot) { *st = Snapshot{} })
	s.persist("")
}

// Subscribe returns a channel that receives a signal after mutations.
// Signals coalesce; a slow reader sees one pending signal, not a backlog.
func (s *Store) Subscribe() (<-chan struct{}, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextSub
	s.nextSub++
	ch := make(chan struct{}, 1)
	s.subscribers[id] = ch

	return ch, func() {
		s.subMu.Lock()
		defer s.subMu.Unlock()
		if _, ok := s.subscribers[id]; ok {
			delete(s.subscribers, id)
			close(ch)
		}
	}
}

func (s *Store) update(fn func(st *Snapshot)) {
	s.mu.Lock()
	fn(&s.state)
	s.mu.Unlock()
	s.notify()
}

func (s *Store) notify() {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subscribers {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}

func (s *Store) persist(id string) {
	if s.repo == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), persistTimeout)
	defer cancel()
	if err := s.repo.SetCurrentExperimentID(ctx, id); err != nil {
		s.log.WithError(err).WithField("experiment_id", id).Error("failed to persist current experiment id")
	}
}
