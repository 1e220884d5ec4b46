package model

import (
	"strings"

	"github.com/rotisserie/eris"
)

// ErrUnsupportedInterviewType is returned for names that are not a known
// interview type.
var ErrUnsupportedInterviewType = eris.New("unsupported interview type")

// InterviewType selects the system/user template pair for a prompt.
type InterviewType string

const (
	InterviewFinfluencerIdentification InterviewType = "finfluencer_identification"
	InterviewStandard                  InterviewType = "interview"
	InterviewPortfolioManager          InterviewType = "portfoliomanager_reflection"
	InterviewInvestmentAdvisor         InterviewType = "investmentadvisor_reflection"
	InterviewFinancialAnalyst          InterviewType = "financialanalyst_reflection"
	InterviewEconomist                 InterviewType = "economist_reflection"
	InterviewGeographicInclusion       InterviewType = "entity_geographic_inclusion"
	InterviewPolling                   InterviewType = "polling"
)

// InterviewTypes lists every supported interview type in declaration order.
var InterviewTypes = []InterviewType{
	InterviewFinfluencerIdentification,
	InterviewStandard,
	InterviewPortfolioManager,
	InterviewInvestmentAdvisor,
	InterviewFinancialAnalyst,
	InterviewEconomist,
	InterviewGeographicInclusion,
	InterviewPolling,
}

// Valid reports whether t is one of the supported interview types.
func (t InterviewType) Valid() bool {
	for _, v := range InterviewTypes {
		if v == t {
			return true
		}
	}
	return false
}

// ParseInterviewType normalizes s and returns the matching type.
func ParseInterviewType(s string) (InterviewType, error) {
	t := InterviewType(strings.ToLower(strings.TrimSpace(s)))
	if !t.Valid() {
		return "", eris.Wrapf(ErrUnsupportedInterviewType, "%q", s)
	}
	return t, nil
}
