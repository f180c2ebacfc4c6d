package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xavierca1/ligue-quotes/internal/usecase"
)

func TestSampleLeadsPassValidation(t *testing.T) {
	for i, insurance := range insuranceTypes {
		for n := 0; n < 20; n++ {
			lead, err := usecase.ValidateLeadSubmission(sampleLead(i*100+n, insurance))
			require.NoError(t, err, "insurance %s", insurance)
			assert.Equal(t, insurance, lead.InsuranceType)
		}
	}
}

func TestPickOutcomeCoversAllOutcomes(t *testing.T) {
	seen := make(map[outcome]bool)
	for i := 0; i < 2000; i++ {
		seen[pickOutcome()] = true
	}
	assert.Len(t, seen, 4)
}
