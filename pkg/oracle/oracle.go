// Package oracle defines the opaque language services the document workflow and the router consult.
//
// Every oracle is a stateless request/response call. Implementations live in subpackages:
// an LLM-backed set driven by any Completer, and an offline keyword set for local runs and tests.
package oracle

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrNoJSON indicates a model response that carries no JSON object.
	ErrNoJSON = errors.New("response contains no JSON object")

	// ErrEmptyResponse indicates a model returned nothing usable.
	ErrEmptyResponse = errors.New("empty oracle response")
)

// Separation splits a request into the words naming the document and the content meant to fill it.
type Separation struct {
	DocumentType string `json:"document_type"`
	Content      string `json:"content"`
}

type Classification struct {
	Label      string
	Confidence float64
}

// ExtractionRequest carries what the extraction oracle needs to fill one document type.
type ExtractionRequest struct {
	DocumentType string
	SystemPrompt string
	Fields       []string
	Content      string
}

// AgentDescriptor is the router's view of one handler, shown to the agent classifier.
type AgentDescriptor struct {
	Name        string
	Description string
	Examples    []string
}

type AgentClassification struct {
	Agent      string
	Confidence float64
	Reasoning  string
}

type Separator interface {
	Separate(ctx context.Context, text string) (Separation, error)
}

type Classifier interface {
	Classify(ctx context.Context, text string) (Classification, error)
}

// IntentClassifier judges a verification reply. The verdict text is expected to
// contain "긍정" or "부정"; anything else is treated as unclear by the caller.
type IntentClassifier interface {
	ClassifyIntent(ctx context.Context, reply string) (string, error)
}

// Extractor returns the raw extraction response. The caller locates the JSON object in it.
type Extractor interface {
	Extract(ctx context.Context, req ExtractionRequest) (string, error)
}

// PolicyChecker returns "OK" or a " | " separated list of "<phrase>: <finding>" clauses.
type PolicyChecker interface {
	CheckPolicy(ctx context.Context, text string) (string, error)
}

type AgentClassifier interface {
	ClassifyAgent(ctx context.Context, query string, agents []AgentDescriptor) (AgentClassification, error)
}

// Set bundles the oracles one workflow engine consumes.
type Set struct {
	Separator  Separator
	Classifier Classifier
	Intent     IntentClassifier
	Extractor  Extractor
	Policy     PolicyChecker
}

// ExtractJSON returns the text from the first '{' to the last '}'.
func ExtractJSON(text string) (string, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")

	if start < 0 || end < start {
		return "", ErrNoJSON
	}

	return text[start : end+1], nil
}
