package domain

import "fmt"

// Verdict is the end user's opinion of the automated response.
type Verdict string

const (
	VerdictSatisfied   Verdict = "satisfied"
	VerdictUnsatisfied Verdict = "unsatisfied"
)

// ParseVerdict validates a verdict string.
func ParseVerdict(raw string) (Verdict, error) {
	switch Verdict(raw) {
	case VerdictSatisfied, VerdictUnsatisfied:
		return Verdict(raw), nil
	case "yes":
		return VerdictSatisfied, nil
	case "no":
		return VerdictUnsatisfied, nil
	default:
		return "", fmt.Errorf("unknown verdict %q", raw)
	}
}

// Vote is the tri-state satisfaction flag of an open detail view.
type Vote int

const (
	VoteUnset Vote = iota
	VoteSatisfied
	VoteUnsatisfied
)

// VoteFor maps a verdict to the vote it records.
func VoteFor(v Verdict) Vote {
	if v == VerdictSatisfied {
		return VoteSatisfied
	}
	return VoteUnsatisfied
}

func (v Vote) String() string {
	switch v {
	case VoteSatisfied:
		return "satisfied"
	case VoteUnsatisfied:
		return "unsatisfied"
	default:
		return "unset"
	}
}

// AIRating is the staff evaluation of the automated response.
type AIRating string

const (
	AIRatingGood AIRating = "good"
	AIRatingPoor AIRating = "poor"
)

// ParseAIRating validates a rating; the empty string is reported as missing.
func ParseAIRating(raw string) (AIRating, bool) {
	switch AIRating(raw) {
	case AIRatingGood, AIRatingPoor:
		return AIRating(raw), true
	default:
		return "", false
	}
}
