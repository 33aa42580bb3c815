package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func TestBuildGenerationPrompt_WithCategoryVocabulary(t *testing.T) {
	prompt := buildGenerationPrompt([]string{
		"Electronics > Cameras > Lenses",
		"Electronics > Cameras > Digital Cameras",
	})

	assert.Contains(t, prompt, "Do not invent a category")
	assert.Contains(t, prompt, "Electronics > Cameras > Lenses\nElectronics > Cameras > Digital Cameras")
	assert.NotContains(t, prompt, freeCategoryInstruction)
}

func TestBuildGenerationPrompt_WithoutCategoryVocabulary(t *testing.T) {
	prompt := buildGenerationPrompt(nil)

	assert.Contains(t, prompt, freeCategoryInstruction)
	assert.NotContains(t, prompt, "Do not invent a category")
}

func TestBuildGenerationPrompt_ContractInvariants(t *testing.T) {
	prompt := buildGenerationPrompt(nil)

	// Mandatory verbatim two-line closing for descriptions.
	assert.Contains(t, prompt, `"I ship super fast and super safe"`)
	assert.Contains(t, prompt, `"Don't hesitate to message me with any questions or offers!"`)
	// Title limit and output contract.
	assert.Contains(t, prompt, "80 characters or less")
	assert.Contains(t, prompt, "enclosed in a ```json ... ``` block")
	// Search-grounded research requirement.
	assert.Contains(t, prompt, "Google Search")
	// No leftover format slots.
	assert.NotContains(t, prompt, "%s")
}

func TestBuildRefinementPrompt(t *testing.T) {
	prompt := buildRefinementPrompt(`{
  "title": "Canon EF 50mm"
}`, "lower the price to $99")

	assert.Contains(t, prompt, `The user's request is: "lower the price to $99"`)
	assert.Contains(t, prompt, "```json\n{\n  \"title\": \"Canon EF 50mm\"\n}\n```")
	assert.Contains(t, prompt, "return the complete, updated, and valid JSON object")
	assert.NotContains(t, prompt, "%[")
}

func TestExtractSources_DropsIncompleteChunks(t *testing.T) {
	candidate := &genai.Candidate{
		GroundingMetadata: &genai.GroundingMetadata{
			GroundingChunks: []*genai.GroundingChunk{
				{Web: &genai.GroundingChunkWeb{URI: "https://example.com/a", Title: "A"}},
				{Web: &genai.GroundingChunkWeb{URI: "", Title: "missing uri"}},
				{Web: &genai.GroundingChunkWeb{URI: "https://example.com/c", Title: ""}},
				{Web: nil},
				{Web: &genai.GroundingChunkWeb{URI: "https://example.com/d", Title: "D"}},
			},
		},
	}

	sources := extractSources(candidate)
	require.Len(t, sources, 2)
	assert.Equal(t, "https://example.com/a", sources[0].URI)
	assert.Equal(t, "D", sources[1].Title)
}

func TestExtractSources_NoGroundingMetadata(t *testing.T) {
	assert.Nil(t, extractSources(&genai.Candidate{}))
}

func TestCalculateGeminiCost(t *testing.T) {
	cost := calculateGeminiCost(1_000_000, 1_000_000)
	assert.InDelta(t, geminiInputPricePerMillion+geminiOutputPricePerMillion, cost, 1e-9)
	assert.Zero(t, calculateGeminiCost(0, 0))
}
