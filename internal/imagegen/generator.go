package imagegen

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/lox/sunspots/internal/forecast"
)

// Generator creates solar banner images using OpenAI's API.
type Generator struct {
	client openai.Client
	model  string
}

// NewGenerator creates a new image generator for the given API key.
func NewGenerator(apiKey string) (*Generator, error) {
	if apiKey == "" {
		return nil, errors.New("OPENAI_API_KEY not set")
	}

	client := openai.NewClient(
		option.WithAPIKey(apiKey),
	)

	return &Generator{
		client: client,
		model:  "gpt-image-1",
	}, nil
}

// Generate creates a banner for the given cycle phase and returns PNG bytes.
func (g *Generator) Generate(ctx context.Context, phase forecast.SolarPhase) ([]byte, error) {
	prompt := BuildPrompt(phase)

	log.Printf("imagegen: generating banner for %s", phase)

	resp, err := g.client.Images.Generate(ctx, openai.ImageGenerateParams{
		Model:        g.model,
		Prompt:       prompt,
		Size:         openai.ImageGenerateParamsSize1536x1024,
		Quality:      openai.ImageGenerateParamsQualityLow,
		OutputFormat: openai.ImageGenerateParamsOutputFormatPNG,
	})
	if err != nil {
		return nil, fmt.Errorf("image generation failed: %w", err)
	}

	if len(resp.Data) == 0 {
		return nil, errors.New("no image data returned")
	}

	imageData := resp.Data[0].B64JSON
	if imageData == "" {
		return nil, errors.New("empty image data returned")
	}

	imageBytes, err := base64.StdEncoding.DecodeString(imageData)
	if err != nil {
		return nil, fmt.Errorf("decode image data: %w", err)
	}

	log.Printf("imagegen: generated banner for %s (%d bytes)", phase, len(imageBytes))
	return imageBytes, nil
}
