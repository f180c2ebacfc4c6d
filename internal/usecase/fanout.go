package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/xavierca1/ligue-quotes/internal/entity"
)

const (
	DefaultChannelTimeout = 10 * time.Second
	DefaultCRMLinkWait    = 3 * time.Second
)

// FanoutResult reports one task per channel, in entity.Channels order.
type FanoutResult struct {
	LeadID string
	Tasks  []entity.NotificationTask
}

func (r *FanoutResult) Task(ch entity.Channel) (entity.NotificationTask, bool) {
	for _, t := range r.Tasks {
		if t.Channel == ch {
			return t, true
		}
	}
	return entity.NotificationTask{}, false
}

func (r *FanoutResult) Failed() []entity.Channel {
	var failed []entity.Channel
	for _, t := range r.Tasks {
		if t.Status == entity.StatusFailed {
			failed = append(failed, t.Channel)
		}
	}
	return failed
}

// Fanout dispatches the notifications of a persisted lead. Every channel runs in its
// own goroutine with its own timeout; a failure is recorded on that channel only.
type Fanout struct {
	CRM      CRMService
	Email    EmailService
	Router   CallRouter
	Leads    LeadRepositoryInterface
	Attempts NotificationRepositoryInterface

	ChannelTimeout time.Duration
	CRMLinkWait    time.Duration

	// OnTask is called once per finished channel (metrics).
	OnTask func(task entity.NotificationTask)

	now func() time.Time
}

func NewFanout(crm CRMService, email EmailService, router CallRouter, leads LeadRepositoryInterface, attempts NotificationRepositoryInterface) *Fanout {
	return &Fanout{
		CRM:            crm,
		Email:          email,
		Router:         router,
		Leads:          leads,
		Attempts:       attempts,
		ChannelTimeout: DefaultChannelTimeout,
		CRMLinkWait:    DefaultCRMLinkWait,
		now:            time.Now,
	}
}

type configurable interface {
	IsConfigured() bool
}

func isConfigured(svc configurable) bool {
	return svc != nil && svc.IsConfigured()
}

// Dispatch never returns an error: per-channel outcomes are in the result.
// The caller's cancellation is ignored so a client disconnect does not abort sends.
func (f *Fanout) Dispatch(ctx context.Context, lead *entity.Lead) *FanoutResult {
	ctx = context.WithoutCancel(ctx)

	var (
		wg     sync.WaitGroup
		crmID  string
		crmIDs = make(chan string, 1)
		tasks  = make(map[entity.Channel]entity.NotificationTask, len(entity.Channels))
		mu     sync.Mutex
	)

	finish := func(task entity.NotificationTask) {
		mu.Lock()
		tasks[task.Channel] = task
		mu.Unlock()
		if f.OnTask != nil {
			f.OnTask(task)
		}
	}

	wg.Add(4)

	go func() {
		defer wg.Done()
		defer close(crmIDs)
		task := f.run(ctx, lead, entity.ChannelCRMLead, isConfigured(f.CRM), func(ctx context.Context) (string, error) {
			return f.CRM.CreateLead(ctx, lead)
		})
		if task.Status == entity.StatusSent && task.ExternalID != "" {
			crmIDs <- task.ExternalID
			f.attachCRMID(ctx, lead.ID, task.ExternalID)
			mu.Lock()
			crmID = task.ExternalID
			mu.Unlock()
		}
		finish(task)
	}()

	go func() {
		defer wg.Done()
		finish(f.run(ctx, lead, entity.ChannelAgentEmail, isConfigured(f.Email), func(ctx context.Context) (string, error) {
			return "", f.Email.SendAgentNotification(ctx, lead, f.waitForCRMLink(ctx, crmIDs))
		}))
	}()

	go func() {
		defer wg.Done()
		finish(f.run(ctx, lead, entity.ChannelConsumerEmail, isConfigured(f.Email), func(ctx context.Context) (string, error) {
			return "", f.Email.SendConsumerConfirmation(ctx, lead)
		}))
	}()

	go func() {
		defer wg.Done()
		finish(f.run(ctx, lead, entity.ChannelCallRouting, isConfigured(f.Router), func(ctx context.Context) (string, error) {
			return "", f.Router.Route(ctx, lead)
		}))
	}()

	wg.Wait()

	if crmID != "" {
		lead.CRMLeadID = crmID
	}

	result := &FanoutResult{LeadID: lead.ID}
	for _, ch := range entity.Channels {
		result.Tasks = append(result.Tasks, tasks[ch])
	}

	if f.Attempts != nil {
		if err := f.Attempts.RecordAttempts(ctx, result.Tasks); err != nil {
			log.Warn().Err(err).Str("lead_id", lead.ID).Msg("failed to record notification attempts")
		}
	}

	log.Info().
		Str("lead_id", lead.ID).
		Int("failed", len(result.Failed())).
		Msg("notification fan-out finished")

	return result
}

// waitForCRMLink gives the CRM channel a short head start so the agent email can
// link the CRM record. It returns "" when the CRM failed, is disabled or is slow.
func (f *Fanout) waitForCRMLink(ctx context.Context, crmIDs <-chan string) string {
	timer := time.NewTimer(f.linkWait())
	defer timer.Stop()

	select {
	case id, ok := <-crmIDs:
		if ok && id != "" {
			return f.CRM.LeadURL(id)
		}
	case <-timer.C:
		log.Debug().Msg("crm id not available in time, sending agent email without link")
	case <-ctx.Done():
	}
	return ""
}

type sendOutcome struct {
	externalID string
	err        error
}

func (f *Fanout) run(ctx context.Context, lead *entity.Lead, ch entity.Channel, configured bool, send func(context.Context) (string, error)) entity.NotificationTask {
	task := entity.NotificationTask{
		Channel:   ch,
		LeadID:    lead.ID,
		Status:    entity.StatusPending,
		StartedAt: f.clock(),
	}

	if !configured {
		task.Status = entity.StatusNotConfigured
		task.FinishedAt = f.clock()
		log.Warn().Str("channel", string(ch)).Str("lead_id", lead.ID).Msg("channel not configured, skipping")
		return task
	}

	timeout := f.timeout()
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	done := make(chan sendOutcome, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- sendOutcome{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		id, err := send(cctx)
		done <- sendOutcome{externalID: id, err: err}
	}()

	var out sendOutcome
	select {
	case out = <-done:
	case <-cctx.Done():
		out.err = fmt.Errorf("timed out after %s: %w", timeout, cctx.Err())
	}

	task.FinishedAt = f.clock()

	if errors.Is(out.err, ErrNotConfigured) {
		task.Status = entity.StatusNotConfigured
		task.Error = out.err.Error()
		log.Warn().Err(out.err).Str("channel", string(ch)).Str("lead_id", lead.ID).Msg("channel not configured, skipping")
		return task
	}

	if out.err != nil {
		cerr := &ChannelError{Channel: ch, LeadID: lead.ID, Err: out.err}
		task.Status = entity.StatusFailed
		task.Error = out.err.Error()
		log.Error().Err(cerr).Str("channel", string(ch)).Str("lead_id", lead.ID).Msg("notification channel failed")
		return task
	}

	task.Status = entity.StatusSent
	task.ExternalID = out.externalID
	return task
}

func (f *Fanout) attachCRMID(ctx context.Context, leadID, crmID string) {
	if f.Leads == nil {
		return
	}
	cctx, cancel := context.WithTimeout(ctx, f.timeout())
	defer cancel()

	if err := f.Leads.AttachCRMID(cctx, leadID, crmID); err != nil {
		log.Error().Err(err).Str("lead_id", leadID).Str("crm_id", crmID).Msg("failed to attach crm id to lead")
	}
}

func (f *Fanout) timeout() time.Duration {
	if f.ChannelTimeout <= 0 {
		return DefaultChannelTimeout
	}
	return f.ChannelTimeout
}

func (f *Fanout) linkWait() time.Duration {
	if f.CRMLinkWait <= 0 {
		return DefaultCRMLinkWait
	}
	return f.CRMLinkWait
}

func (f *Fanout) clock() time.Time {
	if f.now == nil {
		return time.Now()
	}
	return f.now()
}
