package checker

import "strings"

// Verdict is the categorical outcome of checking a statement.
type Verdict string

const (
	VerdictFact         Verdict = "fact"
	VerdictPartial      Verdict = "partial"
	VerdictFalse        Verdict = "false"
	VerdictUnverifiable Verdict = "unverifiable"
)

// ParseVerdict normalizes a model-produced verdict string. Anything
// unrecognized maps to unverifiable rather than passing through raw text.
func ParseVerdict(raw string) Verdict {
	switch Verdict(strings.ToLower(strings.TrimSpace(raw))) {
	case VerdictFact:
		return VerdictFact
	case VerdictPartial:
		return VerdictPartial
	case VerdictFalse:
		return VerdictFalse
	default:
		return VerdictUnverifiable
	}
}

// ClaimType categorizes what kind of factual claim a statement makes.
type ClaimType string

const (
	ClaimStatistic  ClaimType = "statistic"
	ClaimHistorical ClaimType = "historical"
	ClaimLegal      ClaimType = "legal"
	ClaimQuote      ClaimType = "quote"
	ClaimOther      ClaimType = "other"
)

// ParseClaimType normalizes a model-produced claim type.
func ParseClaimType(raw string) ClaimType {
	switch ClaimType(strings.ToLower(strings.TrimSpace(raw))) {
	case ClaimStatistic:
		return ClaimStatistic
	case ClaimHistorical:
		return ClaimHistorical
	case ClaimLegal:
		return ClaimLegal
	case ClaimQuote:
		return ClaimQuote
	default:
		return ClaimOther
	}
}
