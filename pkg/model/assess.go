package model

// Assessment classifies a quoted contract price against the model
// likelihood. A non-positive ratio is a recognized degenerate quote, not an
// error.
type Assessment int

const (
	AssessmentDegenerate Assessment = iota
	AssessmentUnderpriced
	AssessmentFairlyPriced
	AssessmentOverpriced
)

func (a Assessment) String() string {
	switch a {
	case AssessmentUnderpriced:
		return "underpriced"
	case AssessmentFairlyPriced:
		return "fairly_priced"
	case AssessmentOverpriced:
		return "overpriced"
	default:
		return "degenerate"
	}
}

// ratioBand holds the price-tier thresholds on price/likelihood.
type ratioBand struct {
	over  float64 // above this the contract is overpriced
	under float64 // at or below this the contract is underpriced
}

func bandFor(priceCents float64) ratioBand {
	switch {
	case priceCents < 10:
		return ratioBand{over: 3, under: 0.5}
	case priceCents < 60:
		return ratioBand{over: 2, under: 0.6}
	default:
		return ratioBand{over: 1.5, under: 0.8}
	}
}

// AssessPrice compares a price in cents against a model likelihood in [0,1].
// Bands widen for cheaper contracts, where relative spreads on longshots run
// wider. Likelihoods below 1% are floored to keep the ratio bounded.
func AssessPrice(likelihood, priceCents float64) Assessment {
	pct := likelihood * 100
	if pct < 1 {
		pct = 1
	}
	ratio := priceCents / pct
	if ratio <= 0 {
		return AssessmentDegenerate
	}

	band := bandFor(priceCents)
	switch {
	case ratio > band.over:
		return AssessmentOverpriced
	case ratio > band.under:
		return AssessmentFairlyPriced
	default:
		return AssessmentUnderpriced
	}
}
