package palette

import (
	"github.com/visionary-dev/visionary/internal/persona"
)

// PersonaCandidates maps the persona table to menu candidates for the
// '@' trigger.
func PersonaCandidates() []Candidate {
	all := persona.All()
	out := make([]Candidate, 0, len(all))
	for _, p := range all {
		out = append(out, Candidate{
			ID:          string(p.ID),
			Label:       p.Label,
			Description: p.Description,
		})
	}
	return out
}

// PromptCandidates maps the saved prompt table to menu candidates for the
// '/' trigger.
func PromptCandidates() []Candidate {
	out := make([]Candidate, 0, len(persona.SavedPrompts))
	for _, p := range persona.SavedPrompts {
		out = append(out, Candidate{
			ID:    p.Label,
			Label: p.Label,
			Text:  p.Text,
		})
	}
	return out
}
