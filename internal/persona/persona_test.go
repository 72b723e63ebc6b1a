package persona

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve_KnownAndFallback(t *testing.T) {
	assert.Equal(t, Architect, Resolve(Architect).ID)
	assert.Equal(t, MarketAnalysis, Resolve(MarketAnalysis).ID)

	// Unknown ids fall back to the document-authoring persona.
	assert.Equal(t, Architect, Resolve(ID("nonsense")).ID)
	assert.Equal(t, Architect, Resolve(ID("")).ID)
}

func TestArchitectInstruction_EmbedsDocument(t *testing.T) {
	doc := "# My App\n\nA thing."
	instr := Resolve(Architect).Instruction(doc)
	assert.Contains(t, instr, doc)
	assert.Contains(t, instr, "```markdown")
}

func TestArchitectInstruction_EmptyDocumentPlaceholder(t *testing.T) {
	instr := Resolve(Architect).Instruction("")
	assert.Contains(t, instr, EmptyDocumentPlaceholder)

	// Whitespace-only content counts as empty.
	instr = Resolve(Architect).Instruction("   \n\t")
	assert.Contains(t, instr, EmptyDocumentPlaceholder)
}

func TestResearchInstructions_IgnoreDocument(t *testing.T) {
	for _, id := range []ID{DeepSearch, MarketAnalysis, TechDeepDive, CreativeResearch} {
		c := Resolve(id)
		assert.Equal(t, c.Instruction("doc A"), c.Instruction("doc B"), "persona %s", id)
		assert.True(t, strings.Contains(c.Instruction(""), "<thinking>"), "persona %s declares the thinking protocol", id)
	}
}

func TestPermittedOperations(t *testing.T) {
	arch := Resolve(Architect)
	assert.True(t, arch.Permits(OpUpdateDocument))
	assert.True(t, arch.Permits(OpSuggestNextSteps))
	assert.False(t, arch.WebSearch)

	for _, id := range []ID{DeepSearch, MarketAnalysis, TechDeepDive, CreativeResearch} {
		c := Resolve(id)
		assert.True(t, c.Permits(OpUpdateDocument), "persona %s", id)
		assert.False(t, c.Permits(OpSuggestNextSteps), "persona %s", id)
		assert.True(t, c.WebSearch, "persona %s", id)
	}
}

func TestDeclarations_MatchPermittedSet(t *testing.T) {
	arch := Resolve(Architect)
	decls := arch.Declarations()
	assert.Len(t, decls, 2)
	assert.Equal(t, OpUpdateDocument, decls[0].Name)
	assert.Equal(t, OpSuggestNextSteps, decls[1].Name)

	research := Resolve(TechDeepDive)
	decls = research.Declarations()
	assert.Len(t, decls, 1)
	assert.Equal(t, OpUpdateDocument, decls[0].Name)

	live := LiveDeclarations()
	assert.Len(t, live, 2)
}

func TestAll_MenuOrder(t *testing.T) {
	all := All()
	assert.Len(t, all, 5)
	assert.Equal(t, Architect, all[0].ID)
	for _, c := range all {
		assert.NotEmpty(t, c.Label)
		assert.NotEmpty(t, c.Description)
	}
}
