// Command funnel-sim drives synthetic visitors through the quote forms of a
// running quotes API. It is used to smoke-test the ingress and the analytics
// pipeline end to end.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand/v2"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/xavierca1/ligue-quotes/internal/config"
	"github.com/xavierca1/ligue-quotes/internal/entity"
	"github.com/xavierca1/ligue-quotes/internal/infra/worker"
	"github.com/xavierca1/ligue-quotes/internal/logger"
	"github.com/xavierca1/ligue-quotes/internal/tracker"
	"github.com/xavierca1/ligue-quotes/internal/usecase"
)

var insuranceTypes = []entity.InsuranceType{
	entity.InsuranceAuto,
	entity.InsuranceLife,
	entity.InsuranceHealth,
	entity.InsuranceDisability,
	entity.InsuranceHome,
}

type outcome int

const (
	outcomeSubmit outcome = iota
	outcomeAbandon
	outcomeIdle
	outcomeClose
)

func main() {
	cfg, err := config.LoadUnchecked()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logger.Setup(cfg.Log.Level, "console")

	var (
		endpoint    = flag.String("endpoint", cfg.Tracker.EndpointBase, "quotes API base URL")
		sessions    = flag.Int("sessions", 20, "number of simulated visitors")
		steps       = flag.Int("steps", 4, "steps per form")
		stepDelay   = flag.Duration("step-delay", 300*time.Millisecond, "average time on a step")
		idleTimeout = flag.Duration("idle-timeout", 5*time.Second, "abandon sessions idle for this long")
		sweepEvery  = flag.Duration("sweep-every", time.Second, "idle session sweep interval")
	)
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := tracker.NewHTTPClient(*endpoint)
	registry := tracker.NewRegistry(client, client, *idleTimeout)

	sweepCtx, stopSweep := context.WithCancel(ctx)
	defer stopSweep()
	go worker.NewIdleSessionWorker(registry, *sweepEvery).Start(sweepCtx)

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		tally = make(map[outcome]int)
	)

	for i := 0; i < *sessions; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			o := simulate(ctx, registry, n, *steps, *stepDelay)
			mu.Lock()
			tally[o]++
			mu.Unlock()
		}(i)
	}
	wg.Wait()

	// let the sweeper catch the visitors that walked away
	deadline := time.Now().Add(*idleTimeout + 2*(*sweepEvery))
	for registry.Len() > 0 && time.Now().Before(deadline) && ctx.Err() == nil {
		time.Sleep(*sweepEvery)
	}

	log.Info().
		Int("submitted", tally[outcomeSubmit]).
		Int("abandoned", tally[outcomeAbandon]).
		Int("idle", tally[outcomeIdle]).
		Int("closed_tab", tally[outcomeClose]).
		Int("still_open", registry.Len()).
		Msg("simulation finished")
}

func simulate(ctx context.Context, registry *tracker.Registry, n, steps int, delay time.Duration) outcome {
	insurance := insuranceTypes[rand.IntN(len(insuranceTypes))]
	s := registry.Start(tracker.SessionConfig{
		FormID:        uuid.NewString(),
		InsuranceType: insurance,
		TotalSteps:    steps,
		Attribution: usecase.AttributionInput{
			UTMSource:   []string{"google", "facebook", "newsletter"}[rand.IntN(3)],
			UTMMedium:   "cpc",
			UTMCampaign: "funnel-sim",
		},
	})

	o := pickOutcome()
	reach := steps
	if o != outcomeSubmit {
		reach = 1 + rand.IntN(steps)
	}

	for step := 1; step < reach; step++ {
		if !pause(ctx, delay) {
			return outcomeClose
		}
		if err := s.Advance(); err != nil {
			log.Warn().Err(err).Str("form_id", s.FormID()).Msg("advance failed")
			return o
		}
		// some visitors go back once to fix an answer
		if step > 1 && rand.IntN(10) == 0 {
			_ = s.Back()
			_ = s.Advance()
		}
	}

	switch o {
	case outcomeSubmit:
		leadID, err := s.Submit(ctx, sampleLead(n, insurance))
		if err != nil {
			log.Warn().Err(err).Str("form_id", s.FormID()).Msg("quote rejected")
			s.Abandon(ctx, "submit rejected")
			return outcomeAbandon
		}
		log.Debug().Str("form_id", s.FormID()).Str("lead_id", leadID).Msg("quote submitted")
	case outcomeAbandon:
		s.Abandon(ctx, "navigated away")
	case outcomeClose:
		s.Disconnect(ctx)
	case outcomeIdle:
	}
	return o
}

func pickOutcome() outcome {
	switch r := rand.IntN(100); {
	case r < 40:
		return outcomeSubmit
	case r < 70:
		return outcomeAbandon
	case r < 90:
		return outcomeIdle
	default:
		return outcomeClose
	}
}

func pause(ctx context.Context, avg time.Duration) bool {
	d := avg/2 + time.Duration(rand.Int64N(int64(avg)+1))
	select {
	case <-ctx.Done():
		return false
	case <-time.After(d):
		return true
	}
}

func sampleLead(n int, insurance entity.InsuranceType) usecase.SubmitLeadInput {
	age := 25 + rand.IntN(40)
	in := usecase.SubmitLeadInput{
		FirstName:     "Sim",
		LastName:      fmt.Sprintf("Visitor %d", n),
		Email:         fmt.Sprintf("sim+%d@example.com", n),
		Phone:         fmt.Sprintf("555%07d", rand.IntN(10_000_000)),
		InsuranceType: string(insurance),
		Age:           &age,
		ZipCode:       "30301",
	}

	switch insurance {
	case entity.InsuranceLife:
		coverage := entity.CoverageAmounts[rand.IntN(len(entity.CoverageAmounts))]
		term := entity.TermLengths[rand.IntN(len(entity.TermLengths))]
		tobacco := rand.IntN(5) == 0
		in.CoverageAmount, in.TermLength, in.TobaccoUse = &coverage, &term, &tobacco
	case entity.InsuranceAuto:
		year := 2010 + rand.IntN(15)
		in.VehicleYear, in.VehicleMake, in.VehicleModel = &year, "Toyota", "Corolla"
	case entity.InsuranceHealth:
		size := 1 + rand.IntN(5)
		in.HouseholdSize = &size
	}
	return in
}
