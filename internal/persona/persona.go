// Package persona holds the fixed table of selectable operating modes:
// each persona pairs a system instruction template with the set of
// operations the provider is permitted to invoke while it is active.
package persona

import (
	"strings"
)

// ID names a persona.
type ID string

const (
	// Architect is the document-authoring persona and the fallback.
	Architect ID = "architect"
	// DeepSearch is grounded question answering with no document updates.
	DeepSearch ID = "deep-search"
	// MarketAnalysis researches competitors and synthesizes into the document.
	MarketAnalysis ID = "market-analysis"
	// TechDeepDive produces a technical architecture section.
	TechDeepDive ID = "tech-deep-dive"
	// CreativeResearch produces creative direction and UX strategy.
	CreativeResearch ID = "creative-research"
)

// Config is one selectable operating mode. The registry is read-only at
// runtime; switching personas is a pure selection that takes effect on the
// next turn only.
type Config struct {
	ID          ID
	Label       string
	Description string

	// instruction renders the system instruction, optionally parameterized
	// by the current document content.
	instruction func(doc string) string

	// operations is the permitted operation set for this persona.
	operations []string

	// WebSearch declares the provider's search capability for this persona.
	WebSearch bool
}

// Instruction renders the persona's system instruction against the current
// document content. Personas that do not embed the document ignore it.
func (c Config) Instruction(doc string) string {
	return c.instruction(doc)
}

// Permits reports whether the provider may invoke the named operation
// while this persona is active.
func (c Config) Permits(operation string) bool {
	for _, op := range c.operations {
		if op == operation {
			return true
		}
	}
	return false
}

// Operations returns the permitted operation names in declaration order.
func (c Config) Operations() []string {
	out := make([]string, len(c.operations))
	copy(out, c.operations)
	return out
}

var registry = map[ID]Config{
	Architect: {
		ID:          Architect,
		Label:       "Architect AI",
		Description: "Design & Docs",
		instruction: architectInstruction,
		operations:  []string{OpUpdateDocument, OpSuggestNextSteps},
	},
	DeepSearch: {
		ID:          DeepSearch,
		Label:       "Deep Research",
		Description: "Web Search",
		instruction: func(string) string { return deepSearchInstruction },
		operations:  []string{OpUpdateDocument},
		WebSearch:   true,
	},
	MarketAnalysis: {
		ID:          MarketAnalysis,
		Label:       "Market Analyst",
		Description: "Strategy",
		instruction: func(string) string { return marketAnalysisInstruction },
		operations:  []string{OpUpdateDocument},
		WebSearch:   true,
	},
	TechDeepDive: {
		ID:          TechDeepDive,
		Label:       "Tech Architect",
		Description: "Stack & Arch",
		instruction: func(string) string { return techDeepDiveInstruction },
		operations:  []string{OpUpdateDocument},
		WebSearch:   true,
	},
	CreativeResearch: {
		ID:          CreativeResearch,
		Label:       "Creative Director",
		Description: "UX & Brand",
		instruction: func(string) string { return creativeResearchInstruction },
		operations:  []string{OpUpdateDocument},
		WebSearch:   true,
	},
}

// order fixes the listing order for menus.
var order = []ID{Architect, DeepSearch, MarketAnalysis, TechDeepDive, CreativeResearch}

// Resolve returns the persona for id, falling back to Architect when the
// id is unknown.
func Resolve(id ID) Config {
	if c, ok := registry[id]; ok {
		return c
	}
	return registry[Architect]
}

// All returns every persona in menu order.
func All() []Config {
	out := make([]Config, 0, len(order))
	for _, id := range order {
		out = append(out, registry[id])
	}
	return out
}

// EmptyDocumentPlaceholder stands in for an empty canvas in instruction
// templates that embed the document.
const EmptyDocumentPlaceholder = "(Empty Document)"

func architectInstruction(doc string) string {
	if strings.TrimSpace(doc) == "" {
		doc = EmptyDocumentPlaceholder
	}
	var b strings.Builder
	b.WriteString(architectPreamble)
	b.WriteString("\n\nCurrent Document State:\n```markdown\n")
	b.WriteString(doc)
	b.WriteString("\n```\n")
	return b.String()
}
