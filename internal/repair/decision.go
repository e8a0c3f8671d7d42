package repair

import (
	"strings"

	"greycells/internal/artifact"
)

// Decision is the oracle's routing token.
type Decision string

const (
	DecisionFix     Decision = "FIX"
	DecisionRemain  Decision = "REMAIN"
	DecisionVeto    Decision = "VETO"
	DecisionUnknown Decision = "UNKNOWN"
)

// Verdict is one arbitration result. Replacement is the full new content of
// the subject and is only meaningful for FIX.
type Verdict struct {
	Subject     artifact.Role `json:"subject"`
	Decision    Decision      `json:"decision"`
	Rationale   string        `json:"rationale,omitempty"`
	Replacement string        `json:"replacement,omitempty"`
	// Raw is the decision token as the oracle wrote it.
	Raw string `json:"raw,omitempty"`
}

// Allowed returns the decisions the oracle may give for subject.
func Allowed(subject artifact.Role) []Decision {
	switch subject {
	case SubjectTest:
		return []Decision{DecisionFix, DecisionRemain}
	case SubjectSource:
		return []Decision{DecisionFix, DecisionVeto}
	}
	return nil
}

// ParseDecision normalizes a decision token for subject: case is folded,
// emphasis markers, quotes and a leading "decision:" label are stripped. A
// token outside the subject's allowed set is UNKNOWN.
func ParseDecision(subject artifact.Role, token string) Decision {
	t := strings.ToUpper(strings.TrimSpace(token))
	t = strings.Trim(t, "*_`\"'[]()<>.,;:!#- \t\r\n")
	if label, rest, ok := strings.Cut(t, ":"); ok && strings.Trim(label, "*_` ") == "DECISION" {
		t = strings.Trim(rest, "*_`\"'[]()<>.,;:!#- \t\r\n")
	}
	for _, d := range Allowed(subject) {
		if Decision(t) == d {
			return d
		}
	}
	return DecisionUnknown
}

// normalize re-checks a verdict returned by an oracle for subject.
func (v Verdict) normalize(subject artifact.Role) Verdict {
	raw := v.Raw
	if raw == "" {
		raw = string(v.Decision)
	}
	v.Subject = subject
	v.Raw = raw
	v.Decision = ParseDecision(subject, raw)
	if v.Decision == DecisionFix && strings.TrimSpace(v.Replacement) == "" {
		v.Decision = DecisionUnknown
	}
	return v
}
