package senryu

import (
	"encoding/json"
	"fmt"
)

// Candidate is one generated poem: three phrases (upper, middle, lower).
type Candidate struct {
	Type  string   `json:"type"`
	Lines []string `json:"lines"`
	Note  string   `json:"note,omitempty"`
}

// ScoredCandidate is a candidate that survived rule filtering.
type ScoredCandidate struct {
	Candidate  Candidate `json:"candidate"`
	RuleScore  float64   `json:"rule"`
	ModelScore float64   `json:"llm"`
	TotalScore float64   `json:"total"`
	Reasons    []string  `json:"reasons"`
}

// StyleProfile is the opaque style summary produced from the originals.
type StyleProfile map[string]any

// JSON returns the profile as compact JSON, keeping non-ASCII text as is.
func (p StyleProfile) JSON() (string, error) {
	if p == nil {
		return "{}", nil
	}
	data, err := json.Marshal(p)
	if err != nil {
		return "", fmt.Errorf("marshal style profile: %w", err)
	}
	return string(data), nil
}
