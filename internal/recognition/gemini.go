package recognition

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// transcribePrompt asks the vision model for a verbatim transcription; the
// heuristic field extraction happens on our side.
const transcribePrompt = `You are reading a photographed retail receipt. Transcribe every line of printed text exactly as it appears, top to bottom, one receipt line per output line. Preserve numbers, currency symbols and dates verbatim. Output only the transcribed text with no commentary, no markdown and no code blocks.`

// Gemini implements the Engine interface using Google Gemini vision models.
type Gemini struct {
	apiKey    string
	modelName string
	client    *genai.Client
	model     *genai.GenerativeModel
}

// NewGemini creates a new Gemini Engine instance
func NewGemini(apiKey string, modelName string) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini api key is required")
	}
	if modelName == "" {
		modelName = "gemini-2.5-pro"
	}
	return &Gemini{
		apiKey:    apiKey,
		modelName: modelName,
	}, nil
}

// Init connects the Gemini client.
func (g *Gemini) Init(ctx context.Context) error {
	client, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return fmt.Errorf("creating gemini client: %w", err)
	}
	g.client = client
	g.model = client.GenerativeModel(g.modelName)
	return nil
}

// Recognize sends the image to Gemini and returns the transcribed text.
func (g *Gemini) Recognize(ctx context.Context, image []byte) (string, error) {
	if g.model == nil {
		return "", fmt.Errorf("gemini client is not initialized")
	}

	prepared, err := prepareImage(image)
	if err != nil {
		return "", err
	}

	// prepareImage always yields PNG, and genai.ImageData wants the bare
	// format suffix rather than a full MIME type.
	parts := []genai.Part{
		genai.ImageData("png", prepared),
		genai.Text(transcribePrompt),
	}

	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return "", fmt.Errorf("generating content: %w", err)
	}
	if len(resp.Candidates) == 0 || len(resp.Candidates[0].Content.Parts) == 0 {
		return "", fmt.Errorf("no response from gemini")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}

	return stripCodeFences(text.String()), nil
}

// Close closes the Gemini client
func (g *Gemini) Close() error {
	if g.client == nil {
		return nil
	}
	err := g.client.Close()
	g.client = nil
	g.model = nil
	return err
}

// stripCodeFences removes markdown code fences that models sometimes wrap
// around their output despite instructions.
func stripCodeFences(text string) string {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```text")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSuffix(text, "```")
	return strings.TrimSpace(text)
}
