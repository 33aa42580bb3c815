// Package llm builds the generation and refinement requests for the hosted
// model and normalizes its replies.
package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"
	"google.golang.org/genai"

	"snaplister/internal/listing"
)

const geminiModel = "gemini-2.5-flash"

// Gemini pricing (per million tokens)
const (
	geminiInputPricePerMillion  = 0.30
	geminiOutputPricePerMillion = 2.50
)

const (
	jsonFenceOpen  = "```json"
	jsonFenceClose = "```"
)

// AllowedImageMIMETypes is the permitted set for uploaded product photos.
var AllowedImageMIMETypes = map[string]bool{
	"image/png":  true,
	"image/jpeg": true,
	"image/webp": true,
}

const categoryMandateTemplate = `CRITICAL: You MUST select the most relevant category for the item from the following official eBay category list. Do not invent a category. Here is the list:
%s`

const freeCategoryInstruction = "Suggest the most likely eBay category path."

// generationPromptTemplate is the instruction block for the generation call.
// Slots: category instruction, fence open, fence close.
const generationPromptTemplate = `You are an expert eBay lister. Your task is to analyze the provided image(s) of a product. Your primary tool is Google Search; you MUST use it to find the most up-to-date and relevant information to generate an accurate eBay listing. This includes finding exact model numbers, technical specifications, and current market prices.

%s

The generated description is the most important part and must adhere to the following strict rules:
1.  **Factual and Direct**: Avoid sales-like language, marketing fluff, or persuasive tones. Stick to the facts discovered through search and visual analysis.
2.  **Mobile-First Formatting**: This is critical for user experience.
    *   **Short Paragraphs**: Keep paragraphs to a maximum of 1-3 sentences.
    *   **Bulleted Lists**: Use bullet points (using '*') for key features, specifications, contents, or condition details. This makes the information scannable.
    *   **Clear Spacing**: Ensure there is a blank line between paragraphs and before the final closing sentences.
3.  **Mandatory Ending**: The description MUST conclude with the following two sentences, each on its own new line, with no other text after them:
"I ship super fast and super safe"
"Don't hesitate to message me with any questions or offers!"

Additionally, generate a shipping recommendation based on the product's typical size and weight.

CRITICAL: You MUST return your response as a single, valid JSON object enclosed in a %s ... %s block. Do not include any text outside of this block. The JSON object must conform to this structure:
{
  "title": "CRITICAL: Title MUST be 80 characters or less. Your top priority is to create a maximally keyword-dense, SEO-optimized title under the 80-character limit. Aggressively pack the title with every relevant search term a buyer might use, based on your image analysis and Google Search findings. Maintain basic readability but prioritize keyword density. The structure should be: [Brand] [Model Name/Number] [Part Number, if available] [Key Specifications, e.g., Color, Size, Capacity] [Core Function] [Condition]. Use every available character to add valuable keywords.",
  "category_suggestion": "The full eBay category path selected from the provided list.",
  "condition": "Choose 'New', 'Used', or 'For parts or not working' based on the images.",
  "description": "A factual description formatted for mobile readability with short paragraphs, bullet points, and the mandatory two-line ending.",
  "item_specifics": [ { "name": "string", "value": "string" } ], // Generate key-value pairs. For each specific's 'name', use a standard, widely-searched term (e.g., 'Compatible Model' is better than 'For Model'). CRITICAL: Avoid redundancy. If a fact (like brand or model) is already clear in the title, do not repeat it as a specific. Focus on providing *additional* details that a buyer would need.
  "price_recommendation": { "price": number, "justification": "CRITICAL REQUIREMENT: Your justification MUST be evidence-based and highly specific. Reference comparable items that have recently sold (including the price and platform, e.g., 'A similar model in used condition sold for ~$150 on eBay last month') and mention current market trends discovered during your Google Search. Vague statements are unacceptable. Your credibility depends on a specific, well-researched justification." },
  "shipping_recommendation": { "est_weight": "string", "est_dimensions": "string", "rec_service": "string" }
}`

// refinementPromptTemplate embeds the current listing JSON and the user's
// instruction, requesting the full replacement object.
// Slots: 1 user request, 2 fence open, 3 listing JSON, 4 fence close.
const refinementPromptTemplate = `You are an intelligent eBay listing editor. Your task is to modify an existing eBay listing based on a user's request.
The user's request is: "%[1]s"

Here is the current listing data in JSON format:
%[2]s
%[3]s
%[4]s

Please apply the user's requested change to the JSON data.
CRITICAL: You MUST return the complete, updated, and valid JSON object in a %[2]s ... %[4]s block. Do not return only the changed parts. Do not add any commentary or text outside the JSON block.`

// buildGenerationPrompt assembles the instruction block. A non-empty category
// vocabulary mandates selection from the list; otherwise the model may
// suggest freely.
func buildGenerationPrompt(categories []string) string {
	categoryInstruction := freeCategoryInstruction
	if len(categories) > 0 {
		categoryInstruction = fmt.Sprintf(categoryMandateTemplate, strings.Join(categories, "\n"))
	}
	return fmt.Sprintf(generationPromptTemplate, categoryInstruction, jsonFenceOpen, jsonFenceClose)
}

func buildRefinementPrompt(listingJSON, instruction string) string {
	return fmt.Sprintf(refinementPromptTemplate, instruction, jsonFenceOpen, listingJSON, jsonFenceClose)
}

// GeminiGenerator implements Generator using Google's Gemini API.
type GeminiGenerator struct {
	client *genai.Client
}

// NewGeminiGenerator creates a Gemini-backed generator using the given API key.
func NewGeminiGenerator(ctx context.Context, apiKey string) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey: apiKey,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiGenerator{client: client}, nil
}

// GenerateListing implements Generator. The request carries the instruction
// block followed by the images in their given order, and enables the Google
// Search tool so price and spec claims are grounded in search results.
func (g *GeminiGenerator) GenerateListing(ctx context.Context, images []ImageInput, categories []string) (*GenerationResult, error) {
	if len(images) == 0 {
		return nil, fmt.Errorf("no images provided")
	}
	for i, img := range images {
		if !AllowedImageMIMETypes[img.MIMEType] {
			return nil, fmt.Errorf("image %d has unsupported mime type %q", i, img.MIMEType)
		}
	}

	parts := []*genai.Part{
		genai.NewPartFromText(buildGenerationPrompt(categories)),
	}
	for _, img := range images {
		parts = append(parts, &genai.Part{
			InlineData: &genai.Blob{Data: img.Data, MIMEType: img.MIMEType},
		})
	}
	contents := []*genai.Content{
		genai.NewContentFromParts(parts, genai.RoleUser),
	}
	config := &genai.GenerateContentConfig{
		Tools: []*genai.Tool{
			{GoogleSearch: &genai.GoogleSearch{}},
		},
	}

	result, err := g.client.Models.GenerateContent(ctx, geminiModel, contents, config)
	if err != nil {
		return nil, fmt.Errorf("failed to generate content: %w", err)
	}
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("no response from Gemini")
	}

	usage := usageFromMetadata(result.UsageMetadata)
	log.Info().
		Str("model", geminiModel).
		Int("imageCount", len(images)).
		Int("categoryCount", len(categories)).
		Int64("inputTokens", usage.InputTokens).
		Int64("outputTokens", usage.OutputTokens).
		Float64("costUSD", usage.CostUSD).
		Msg("listing generation llm call")

	return &GenerationResult{
		RawText: result.Text(),
		Sources: extractSources(result.Candidates[0]),
		Usage:   usage,
	}, nil
}

// RefineListing implements Generator. The refinement call runs without tools:
// it edits the supplied JSON rather than re-researching the item.
func (g *GeminiGenerator) RefineListing(ctx context.Context, listingJSON string, instruction string) (string, error) {
	prompt := buildRefinementPrompt(listingJSON, instruction)
	contents := []*genai.Content{
		genai.NewContentFromParts([]*genai.Part{genai.NewPartFromText(prompt)}, genai.RoleUser),
	}

	result, err := g.client.Models.GenerateContent(ctx, geminiModel, contents, nil)
	if err != nil {
		return "", fmt.Errorf("failed to generate content: %w", err)
	}
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil || len(result.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from Gemini")
	}

	usage := usageFromMetadata(result.UsageMetadata)
	log.Info().
		Str("model", geminiModel).
		Str("instruction", instruction).
		Int64("inputTokens", usage.InputTokens).
		Int64("outputTokens", usage.OutputTokens).
		Float64("costUSD", usage.CostUSD).
		Msg("listing refinement llm call")

	return result.Text(), nil
}

// extractSources normalizes grounding citations from a candidate. Chunks
// missing either a URI or a title are dropped.
func extractSources(candidate *genai.Candidate) []listing.Source {
	if candidate.GroundingMetadata == nil {
		return nil
	}
	var sources []listing.Source
	for _, chunk := range candidate.GroundingMetadata.GroundingChunks {
		if chunk.Web == nil || chunk.Web.URI == "" || chunk.Web.Title == "" {
			continue
		}
		sources = append(sources, listing.Source{URI: chunk.Web.URI, Title: chunk.Web.Title})
	}
	return sources
}

func usageFromMetadata(md *genai.GenerateContentResponseUsageMetadata) Usage {
	usage := Usage{}
	if md != nil {
		usage.InputTokens = int64(md.PromptTokenCount)
		usage.OutputTokens = int64(md.CandidatesTokenCount)
		usage.TotalTokens = int64(md.TotalTokenCount)
		usage.CostUSD = calculateGeminiCost(usage.InputTokens, usage.OutputTokens)
	}
	return usage
}

func calculateGeminiCost(inputTokens, outputTokens int64) float64 {
	inputCost := float64(inputTokens) / 1_000_000 * geminiInputPricePerMillion
	outputCost := float64(outputTokens) / 1_000_000 * geminiOutputPricePerMillion
	return inputCost + outputCost
}
