package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"google.golang.org/genai"
)

const (
	defaultRegion  = "europe-west1"
	defaultModel   = "gemini-2.5-flash"
	captionTimeout = 20 * time.Second
)

// VertexTarget names where caption requests are sent.
type VertexTarget struct {
	Project string
	Region  string
	Model   string
}

// vertexTarget picks the Vertex AI project, region and model out of the
// server config. An empty region or model falls back to the defaults.
func vertexTarget(cfg Config) (VertexTarget, error) {
	t := VertexTarget{Project: cfg.ProjectID, Region: cfg.Region, Model: cfg.Model}
	if t.Project == "" {
		return t, errors.New("gcp project id is empty")
	}
	if t.Region == "" {
		t.Region = defaultRegion
	}
	if t.Model == "" {
		t.Model = defaultModel
	}
	return t, nil
}

// GeminiClient captions solved puzzles with a Gemini model on Vertex AI.
// The genai client holds no connection of its own, so there is nothing to close.
type GeminiClient struct {
	models  *genai.Models
	model   string
	timeout time.Duration
}

// NewGeminiClient authenticates with Application Default Credentials
// (GOOGLE_APPLICATION_CREDENTIALS or the metadata server).
func NewGeminiClient(ctx context.Context, target VertexTarget) (*GeminiClient, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  target.Project,
		Location: target.Region,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("vertex client %s/%s: %w", target.Project, target.Region, err)
	}
	return &GeminiClient{
		models:  client.Models,
		model:   target.Model,
		timeout: captionTimeout,
	}, nil
}
