package entity

type InsuranceType string

const (
	InsuranceAuto       InsuranceType = "auto"
	InsuranceLife       InsuranceType = "life"
	InsuranceHealth     InsuranceType = "health"
	InsuranceDisability InsuranceType = "disability"
	InsuranceHome       InsuranceType = "home"
)

var insuranceTypes = map[InsuranceType]bool{
	InsuranceAuto:       true,
	InsuranceLife:       true,
	InsuranceHealth:     true,
	InsuranceDisability: true,
	InsuranceHome:       true,
}

func (t InsuranceType) Valid() bool {
	return insuranceTypes[t]
}

// Allowed coverage amounts in whole dollars.
var CoverageAmounts = []int{50000, 100000, 250000, 500000, 750000, 1000000, 2000000}

// Allowed term lengths in years.
var TermLengths = []int{10, 15, 20, 25, 30}

func IsAllowedCoverage(amount int) bool {
	return contains(CoverageAmounts, amount)
}

func IsAllowedTerm(years int) bool {
	return contains(TermLengths, years)
}

func contains(set []int, v int) bool {
	for _, s := range set {
		if s == v {
			return true
		}
	}
	return false
}
