package analysis

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"

	"github.com/socialpulse/mentions-bot/internal/models"
)

// buildPrompt renders the base extraction prompt for one raw item.
func buildPrompt(item models.RawItem) string {
	entities := strings.Join(item.Entities, ", ")
	return fmt.Sprintf(`Analyze this user feedback about %s:

**Text:** %s

**Source:** %s
**URL:** %s
**Author:** %s

Provide a structured analysis in JSON format with these fields:

1. **sentiment**: "positive", "neutral", "negative" or "mixed"
2. **sentiment_score**: Float from -1.0 (very negative) to +1.0 (very positive)
3. **rating**: Integer 1-5 stars if explicitly mentioned in text, otherwise null
4. **category**: One of: "complaint", "review", "question", "praise", "feature_request"
5. **topics**: List of relevant topics (e.g. ["pricing", "support", "integration"])
6. **key_insight**: One sentence capturing the core message (max 20 words)
7. **summary**: Professional 10-15 word summary suitable for a dashboard
8. **confidence**: Float 0.0-1.0 indicating your confidence in this analysis
9. **actionable**: Boolean, true if this requires a response or action from the company
10. **response_draft**: If actionable=true, a professional, empathetic reply draft (2-3 sentences). Otherwise null.

Important guidelines:
- Be objective and professional
- Extract actual topics mentioned, do not invent topics not in the text
- For rating: only include it if the user explicitly mentions stars or a score (e.g. "3/5", "4 stars")
- Response drafts should acknowledge the issue and suggest next steps

Return ONLY valid JSON, no markdown formatting or explanations.

Example output:
{
  "sentiment": "negative",
  "sentiment_score": -0.6,
  "rating": 2,
  "category": "complaint",
  "topics": ["pricing", "ad_quality"],
  "key_insight": "User frustrated with high CPM and intrusive ad placements",
  "summary": "Negative feedback on pricing and ad quality from publisher",
  "confidence": 0.85,
  "actionable": true,
  "response_draft": "Thank you for sharing your feedback. We understand your concerns about pricing and ad quality. Can we schedule a call this week to discuss optimization options?"
}`, entities, item.Text, item.Platform, item.URL, item.Author)
}

// extractionSchema is rendered once at startup and appended to the retry
// prompt, so a second attempt sees the exact field set and value domains.
var extractionSchema = generateExtractionSchema()

func generateExtractionSchema() string {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties:  false,
		DoNotReference:             true,
		RequiredFromJSONSchemaTags: true,
	}
	schema := reflector.Reflect(&Extraction{})
	data, err := json.Marshal(schema)
	if err != nil {
		panic(err)
	}
	return string(data)
}

// strictPrompt tightens the base prompt after a failed first attempt.
func strictPrompt(base string) string {
	return base + "\n\nYour previous output was not valid. Return ONLY a single compact JSON object matching this JSON Schema exactly:\n" + extractionSchema
}
