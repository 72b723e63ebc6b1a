// Package palette parses in-progress input for trigger tokens and resolves
// them to persona switches or canned prompt insertion. It is a pure
// function of the input string and the candidate tables: no network, no
// persistence.
package palette

import (
	"regexp"
	"sort"
	"strings"
)

// Trigger identifies which reserved prefix character opened the menu.
type Trigger rune

const (
	// TriggerPersona ('@') switches the active persona.
	TriggerPersona Trigger = '@'
	// TriggerPrompt ('/') splices a canned prompt into the input.
	TriggerPrompt Trigger = '/'
)

var (
	personaRe = regexp.MustCompile(`@([a-zA-Z0-9\s]*)$`)
	promptRe  = regexp.MustCompile(`/([a-zA-Z0-9\s]*)$`)
)

// Match is a detected trailing trigger with its query fragment.
type Match struct {
	Trigger Trigger
	Query   string
}

// Candidate is one selectable menu entry. For personas, Text carries the
// persona id; for prompts it carries the canned text to splice in.
type Candidate struct {
	ID          string
	Label       string
	Description string
	Text        string
}

// Detect finds a trailing trigger token in the input. The '@' trigger wins
// when both could match. Returns nil when no menu should be open.
func Detect(input string) *Match {
	if m := personaRe.FindStringSubmatch(input); m != nil {
		return &Match{Trigger: TriggerPersona, Query: m[1]}
	}
	if m := promptRe.FindStringSubmatch(input); m != nil {
		return &Match{Trigger: TriggerPrompt, Query: m[1]}
	}
	return nil
}

// Filter returns the candidates whose label or description (or splice
// text) contains the query, case-insensitively. Candidates whose label
// starts with the typed prefix rank first; the incoming order is kept
// otherwise (sort is stable).
func Filter(candidates []Candidate, query string) []Candidate {
	q := strings.ToLower(strings.TrimSpace(query))

	var out []Candidate
	for _, c := range candidates {
		if q == "" || containsFold(c.Label, q) || containsFold(c.Description, q) || containsFold(c.Text, q) {
			out = append(out, c)
		}
	}

	if q != "" {
		sort.SliceStable(out, func(i, j int) bool {
			pi := strings.HasPrefix(strings.ToLower(out[i].Label), q)
			pj := strings.HasPrefix(strings.ToLower(out[j].Label), q)
			return pi && !pj
		})
	}
	return out
}

func containsFold(s, lowerQuery string) bool {
	return strings.Contains(strings.ToLower(s), lowerQuery)
}

// Selection is the outcome of picking a candidate from an open menu.
type Selection struct {
	// Input is the new input buffer after the trigger fragment is consumed.
	Input string
	// PersonaID is set when the selection switches the active persona.
	PersonaID string
}

// Apply consumes the trigger fragment at the end of input for the chosen
// candidate: a persona selection strips the fragment and reports the
// persona id; a prompt selection replaces the fragment with the canned text.
func Apply(input string, trigger Trigger, selected Candidate) Selection {
	switch trigger {
	case TriggerPersona:
		if loc := personaRe.FindStringIndex(input); loc != nil {
			return Selection{
				Input:     strings.TrimSpace(input[:loc[0]]),
				PersonaID: selected.ID,
			}
		}
		return Selection{Input: input, PersonaID: selected.ID}
	case TriggerPrompt:
		if loc := promptRe.FindStringIndex(input); loc != nil {
			return Selection{Input: input[:loc[0]] + selected.Text}
		}
		return Selection{Input: input}
	}
	return Selection{Input: input}
}
