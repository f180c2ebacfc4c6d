package usecase

import (
	"context"
	"errors"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/xavierca1/ligue-quotes/internal/entity"
)

type Dispatcher interface {
	Dispatch(ctx context.Context, lead *entity.Lead) *FanoutResult
}

// SubmitLeadUseCase persists a quote lead and starts the notification fan-out.
// The lead write gates everything: nothing is dispatched if it fails.
type SubmitLeadUseCase struct {
	Repo       LeadRepositoryInterface
	Dispatcher Dispatcher

	// OnCreated is called after the lead is durably stored (metrics).
	OnCreated func(lead *entity.Lead)

	inflight sync.WaitGroup
}

func NewSubmitLeadUseCase(repo LeadRepositoryInterface, dispatcher Dispatcher) *SubmitLeadUseCase {
	return &SubmitLeadUseCase{
		Repo:       repo,
		Dispatcher: dispatcher,
	}
}

func (uc *SubmitLeadUseCase) Execute(ctx context.Context, input SubmitLeadInput) (*SubmitLeadOutput, error) {
	lead, err := ValidateLeadSubmission(input)
	if err != nil {
		return nil, err
	}

	if err := uc.Repo.Create(ctx, lead); err != nil {
		var perr *PersistenceError
		if !errors.As(err, &perr) {
			perr = &PersistenceError{Op: "create lead", Err: err}
		}
		log.Error().Err(err).Str("email", lead.Email).Str("insurance_type", string(lead.InsuranceType)).Msg("failed to persist lead")
		return nil, perr
	}

	log.Info().Str("lead_id", lead.ID).Str("insurance_type", string(lead.InsuranceType)).Msg("lead created")

	if uc.OnCreated != nil {
		uc.OnCreated(lead)
	}

	output := &SubmitLeadOutput{Success: true, ID: lead.ID}

	if uc.Dispatcher != nil {
		detached := context.WithoutCancel(ctx)
		uc.inflight.Add(1)
		go func() {
			defer uc.inflight.Done()
			uc.Dispatcher.Dispatch(detached, lead)
		}()
	}

	return output, nil
}

// Wait blocks until every fan-out started by Execute has finished.
func (uc *SubmitLeadUseCase) Wait() {
	uc.inflight.Wait()
}
