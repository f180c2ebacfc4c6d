// Package tracker follows a visitor through a multi-step quote form and reports
// submission, completion and abandonment to the funnel endpoints.
package tracker

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/xavierca1/ligue-quotes/internal/entity"
	"github.com/xavierca1/ligue-quotes/internal/usecase"
)

var ErrSessionClosed = errors.New("form session already completed or abandoned")

type State int

const (
	StateStarted State = iota
	StateInProgress
	StateCompleted
	StateAbandoned
)

func (s State) String() string {
	switch s {
	case StateStarted:
		return "started"
	case StateInProgress:
		return "in_progress"
	case StateCompleted:
		return "completed"
	case StateAbandoned:
		return "abandoned"
	}
	return "unknown"
}

func (s State) Terminal() bool {
	return s == StateCompleted || s == StateAbandoned
}

type Emitter interface {
	Emit(ctx context.Context, kind entity.EventType, input usecase.TrackEventInput) error
}

type LeadSubmitter interface {
	Submit(ctx context.Context, input usecase.SubmitLeadInput) (string, error)
}

type SessionConfig struct {
	FormID        string
	InsuranceType entity.InsuranceType
	TotalSteps    int
	Attribution   usecase.AttributionInput
}

// Session is one visitor's pass through a form. Steps are 1-based.
type Session struct {
	mu sync.Mutex

	cfg       SessionConfig
	emitter   Emitter
	submitter LeadSubmitter
	now       func() time.Time

	state        State
	submitting   bool
	step         int
	furthestStep int
	startedAt    time.Time
	stepEntered  time.Time
	lastActivity time.Time
	stepTime     map[int]time.Duration
}

func NewSession(cfg SessionConfig, emitter Emitter, submitter LeadSubmitter) *Session {
	return newSession(cfg, emitter, submitter, time.Now)
}

func newSession(cfg SessionConfig, emitter Emitter, submitter LeadSubmitter, now func() time.Time) *Session {
	if cfg.TotalSteps < 1 {
		cfg.TotalSteps = 1
	}
	t := now()
	return &Session{
		cfg:          cfg,
		emitter:      emitter,
		submitter:    submitter,
		now:          now,
		state:        StateStarted,
		step:         1,
		furthestStep: 1,
		startedAt:    t,
		stepEntered:  t,
		lastActivity: t,
		stepTime:     make(map[int]time.Duration),
	}
}

func (s *Session) FormID() string { return s.cfg.FormID }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Step() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.step
}

func (s *Session) LastActivity() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActivity
}

// Advance moves to the next step. The last step is left only through Submit.
func (s *Session) Advance() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Terminal() {
		return ErrSessionClosed
	}
	s.leaveStep()
	if s.step < s.cfg.TotalSteps {
		s.step++
	}
	if s.step > s.furthestStep {
		s.furthestStep = s.step
	}
	s.state = StateInProgress
	return nil
}

func (s *Session) Back() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state.Terminal() {
		return ErrSessionClosed
	}
	s.leaveStep()
	if s.step > 1 {
		s.step--
	}
	s.state = StateInProgress
	return nil
}

// Submit sends the lead and, once it is accepted, reports the submission and
// the completion of the form. A rejected submit leaves the session open so the
// visitor can correct the form. While the request is in flight the session is
// neither idle nor abandonable.
func (s *Session) Submit(ctx context.Context, input usecase.SubmitLeadInput) (string, error) {
	s.mu.Lock()
	if s.state.Terminal() || s.submitting {
		s.mu.Unlock()
		return "", ErrSessionClosed
	}
	s.submitting = true
	s.lastActivity = s.now()
	s.mu.Unlock()

	leadID, err := s.submitter.Submit(ctx, input)

	s.mu.Lock()
	s.submitting = false
	if err != nil {
		s.lastActivity = s.now()
		if s.state == StateStarted {
			s.state = StateInProgress
		}
		s.mu.Unlock()
		return "", err
	}

	// an accepted lead always gets its submission and completion rows, even
	// if an abandonment was reported while the request was running
	if !s.state.Terminal() {
		s.leaveStep()
	}
	s.state = StateCompleted
	step := s.step
	stepSpent := s.stepTime[step].Seconds()
	total := s.totalTime().Seconds()
	s.mu.Unlock()

	s.emit(ctx, entity.EventSubmission, s.input(step, stepSpent, nil))
	s.emit(ctx, entity.EventCompletion, s.input(s.cfg.TotalSteps, total, &total))

	return leadID, nil
}

// Abandon reports the furthest step reached. It emits at most once per session
// and does nothing once the form is completed or while a submit is running.
func (s *Session) Abandon(ctx context.Context, reason string) bool {
	s.mu.Lock()
	if s.state.Terminal() || s.submitting {
		s.mu.Unlock()
		return false
	}
	step, total := s.close()
	s.mu.Unlock()

	log.Debug().Str("form_id", s.cfg.FormID).Int("step", step).Str("reason", reason).Msg("form abandoned")
	s.emit(ctx, entity.EventAbandonment, s.input(step, total, nil))
	return true
}

// Disconnect is the page-unload beacon. An open session is abandoned exactly as
// Abandon does. After completion, or while a submit is in flight, the beacon
// still reports an abandonment but leaves the state alone; consumers reconcile
// using the terminal-most event of the form. An abandoned session sends nothing.
func (s *Session) Disconnect(ctx context.Context) {
	s.mu.Lock()
	var step int
	var total float64
	switch {
	case s.state == StateAbandoned:
		s.mu.Unlock()
		return
	case s.state == StateCompleted || s.submitting:
		step = s.furthestStep
		total = s.totalTimeAt(s.now()).Seconds()
	default:
		step, total = s.close()
	}
	s.mu.Unlock()

	s.emit(ctx, entity.EventAbandonment, s.input(step, total, nil))
}

// expirable reports whether the sweep may abandon the session.
func (s *Session) expirable(now time.Time, idleTimeout time.Duration) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.state.Terminal() && !s.submitting && now.Sub(s.lastActivity) >= idleTimeout
}

// close moves an open session to Abandoned. Callers hold mu.
func (s *Session) close() (step int, totalSeconds float64) {
	s.leaveStep()
	s.state = StateAbandoned
	return s.furthestStep, s.totalTime().Seconds()
}

// leaveStep books the time spent on the current step. Callers hold mu.
func (s *Session) leaveStep() {
	t := s.now()
	s.stepTime[s.step] += t.Sub(s.stepEntered)
	s.stepEntered = t
	s.lastActivity = t
}

func (s *Session) totalTime() time.Duration {
	var d time.Duration
	for _, v := range s.stepTime {
		d += v
	}
	return d
}

func (s *Session) totalTimeAt(t time.Time) time.Duration {
	d := s.totalTime()
	if !s.state.Terminal() {
		d += t.Sub(s.stepEntered)
	}
	return d
}

func (s *Session) input(step int, spent float64, totalSpent *float64) usecase.TrackEventInput {
	total := s.cfg.TotalSteps
	in := usecase.TrackEventInput{
		FormID:           s.cfg.FormID,
		InsuranceType:    string(s.cfg.InsuranceType),
		Step:             &step,
		TotalSteps:       &total,
		AttributionInput: s.cfg.Attribution,
	}
	if totalSpent != nil {
		in.TotalTimeSpent = totalSpent
	} else {
		in.TimeSpent = &spent
	}
	return in
}

func (s *Session) emit(ctx context.Context, kind entity.EventType, input usecase.TrackEventInput) {
	if s.emitter == nil {
		return
	}
	if err := s.emitter.Emit(ctx, kind, input); err != nil {
		log.Warn().Err(err).Str("form_id", s.cfg.FormID).Str("event_type", string(kind)).Msg("failed to emit funnel event")
	}
}
