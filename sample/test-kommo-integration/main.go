package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/xavierca1/ligue-quotes/internal/config"
	"github.com/xavierca1/ligue-quotes/internal/infra/integration/kommo"
	"github.com/xavierca1/ligue-quotes/internal/logger"
	"github.com/xavierca1/ligue-quotes/internal/usecase"
)

// Creates one test lead in Kommo with the credentials from .env / config.
func main() {
	cfg, err := config.LoadUnchecked()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	logger.Setup("debug", "console")

	client := kommo.NewClient(kommo.Config{
		Subdomain:  cfg.Kommo.Subdomain,
		Token:      cfg.Kommo.Token,
		PipelineID: cfg.Kommo.PipelineID,
		StatusID:   cfg.Kommo.StatusID,
	})
	if !client.IsConfigured() {
		log.Fatal().Msg("KOMMO_TOKEN and KOMMO_SUBDOMAIN must be set")
	}

	age, coverage, term := 42, 500000, 20
	lead, err := usecase.ValidateLeadSubmission(usecase.SubmitLeadInput{
		FirstName:      "Joe",
		LastName:       "Tester",
		Email:          "joe.tester@example.com",
		Phone:          "(555) 010-4477",
		InsuranceType:  "life",
		Age:            &age,
		CoverageAmount: &coverage,
		TermLength:     &term,
		AttributionInput: usecase.AttributionInput{
			UTMSource: "kommo-smoke-test",
		},
	})
	if err != nil {
		log.Fatal().Err(err).Msg("sample lead is invalid")
	}
	lead.ID = "smoke-" + time.Now().Format("20060102150405")

	fmt.Println("Creating lead in Kommo...")
	fmt.Printf("   Name: %s\n", lead.FullName())
	fmt.Printf("   Email: %s\n", lead.Email)
	fmt.Printf("   Phone: %s\n", lead.Phone)
	fmt.Printf("   Tags: %v\n\n", lead.Tags)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	crmID, err := client.CreateLead(ctx, lead)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create Kommo lead: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Lead created: #%s\n", crmID)
	fmt.Printf("Link: %s\n", client.LeadURL(crmID))
}
