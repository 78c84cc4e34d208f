// Package llm implements every oracle on top of a chat completion model.
package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/dukex/docflow/pkg/oracle"
)

// Completer sends one system instruction and one user message to a model and returns its reply.
type Completer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Oracles implements all oracle interfaces with prompts over a Completer.
type Oracles struct {
	completer Completer
}

func New(completer Completer) *Oracles {
	return &Oracles{completer: completer}
}

// Set returns the workflow oracle bundle backed by o.
func (o *Oracles) Set() oracle.Set {
	return oracle.Set{
		Separator:  o,
		Classifier: o,
		Intent:     o,
		Extractor:  o,
		Policy:     o,
	}
}

func (o *Oracles) complete(ctx context.Context, system, user string) (string, error) {
	content, err := o.completer.Complete(ctx, system, user)
	if err != nil {
		return "", err
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return "", oracle.ErrEmptyResponse
	}

	return content, nil
}

func (o *Oracles) Separate(ctx context.Context, text string) (oracle.Separation, error) {
	content, err := o.complete(ctx, separationPrompt, text)
	if err != nil {
		return oracle.Separation{}, err
	}

	raw, err := oracle.ExtractJSON(content)
	if err != nil {
		return oracle.Separation{}, err
	}

	var separation oracle.Separation
	if err := json.Unmarshal([]byte(raw), &separation); err != nil {
		return oracle.Separation{}, fmt.Errorf("failed to parse separation result: %w", err)
	}

	return separation, nil
}

func (o *Oracles) Classify(ctx context.Context, text string) (oracle.Classification, error) {
	content, err := o.complete(ctx, classificationPrompt, text)
	if err != nil {
		return oracle.Classification{}, err
	}

	return oracle.Classification{Label: content, Confidence: 1}, nil
}

func (o *Oracles) ClassifyIntent(ctx context.Context, reply string) (string, error) {
	return o.complete(ctx, intentPrompt, reply)
}

func (o *Oracles) Extract(ctx context.Context, req oracle.ExtractionRequest) (string, error) {
	if strings.TrimSpace(req.SystemPrompt) == "" {
		return "", fmt.Errorf("no extraction prompt configured for %s", req.DocumentType)
	}

	return o.complete(ctx, req.SystemPrompt, req.Content)
}

func (o *Oracles) CheckPolicy(ctx context.Context, text string) (string, error) {
	return o.complete(ctx, policyPrompt, text)
}

type agentResponse struct {
	Agent      *string `json:"agent"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
}

// ClassifyAgent asks the model to pick a handler. Unknown agent names come back as an empty agent with zero confidence.
func (o *Oracles) ClassifyAgent(ctx context.Context, query string, agents []oracle.AgentDescriptor) (oracle.AgentClassification, error) {
	var prompt strings.Builder

	prompt.WriteString(agentPromptHeader)

	for i, agent := range agents {
		fmt.Fprintf(&prompt, "%d. %s: %s\n", i+1, agent.Name, agent.Description)

		for _, example := range agent.Examples {
			fmt.Fprintf(&prompt, "   - %s\n", example)
		}
	}

	prompt.WriteString(agentPromptFooter)

	content, err := o.complete(ctx, prompt.String(), query)
	if err != nil {
		return oracle.AgentClassification{}, err
	}

	raw, err := oracle.ExtractJSON(content)
	if err != nil {
		return oracle.AgentClassification{}, err
	}

	var resp agentResponse
	if err := json.Unmarshal([]byte(raw), &resp); err != nil {
		return oracle.AgentClassification{}, fmt.Errorf("failed to parse agent classification: %w", err)
	}

	result := oracle.AgentClassification{Confidence: resp.Confidence, Reasoning: resp.Reasoning}

	if resp.Agent != nil {
		for _, agent := range agents {
			if agent.Name == *resp.Agent {
				result.Agent = agent.Name

				return result, nil
			}
		}
	}

	result.Confidence = 0

	return result, nil
}
