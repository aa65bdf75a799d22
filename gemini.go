package main

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"google.golang.org/genai"
)

const captionPrompt = `Regarde cette image : elle vient d'être reconstituée dans un puzzle.

Écris un court message de félicitations pour le joueur, en français, qui évoque ce que montre l'image.

Règles :
- Une seule phrase, 120 caractères maximum.
- Pas de guillemets, pas de markdown, pas d'emoji.
- Réponds UNIQUEMENT avec la phrase.`

const maxCaptionRunes = 160

// Captioner writes the completion message for an uploaded image.
type Captioner interface {
	Caption(ctx context.Context, imageData []byte, mimeType string) (string, error)
}

// Caption sends the image to Gemini Flash and returns a congratulation message.
func (g *GeminiClient) Caption(ctx context.Context, imageData []byte, mimeType string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	resp, err := g.models.GenerateContent(ctx, g.model,
		[]*genai.Content{{
			Role: "user",
			Parts: []*genai.Part{
				{Text: captionPrompt},
				{InlineData: &genai.Blob{MIMEType: mimeType, Data: imageData}},
			},
		}},
		&genai.GenerateContentConfig{
			Temperature:     genai.Ptr(float32(0.7)),
			MaxOutputTokens: 128,
		},
	)
	if err != nil {
		return "", fmt.Errorf("gemini generate: %w", err)
	}

	text := cleanCaption(resp.Text())
	if text == "" {
		return "", fmt.Errorf("empty gemini response")
	}
	return text, nil
}

// cleanCaption keeps the first line of a model answer, without quotes.
func cleanCaption(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	s = strings.Trim(s, "\"'«» ")
	if utf8.RuneCountInString(s) > maxCaptionRunes {
		s = string([]rune(s)[:maxCaptionRunes])
	}
	return s
}
