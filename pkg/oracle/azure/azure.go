// Package azure provides a Completer backed by an Azure OpenAI chat deployment.
package azure

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/ai/azopenai"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
)

var ErrNoCompletion = errors.New("no completion received from LLM")

const DefaultTemperature = 0.7

// Completer sends prompts to one Azure OpenAI deployment.
type Completer struct {
	client       *azopenai.Client
	deploymentID string
	temperature  float32
}

type Option func(*Completer)

// WithTemperature sets the sampling temperature sent with every request.
func WithTemperature(temperature float32) Option {
	return func(c *Completer) {
		c.temperature = temperature
	}
}

// NewCompleter creates a Completer using key credentials.
func NewCompleter(endpoint, apiKey, deploymentID string, opts ...Option) (*Completer, error) {
	if endpoint == "" || apiKey == "" || deploymentID == "" {
		return nil, errors.New("azure openai endpoint, key and deployment are required")
	}

	keyCredential := azcore.NewKeyCredential(apiKey)

	client, err := azopenai.NewClientWithKeyCredential(endpoint, keyCredential, nil)
	if err != nil {
		return nil, fmt.Errorf("error creating Azure OpenAI client: %w", err)
	}

	c := &Completer{
		client:       client,
		deploymentID: deploymentID,
		temperature:  DefaultTemperature,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c, nil
}

// Complete folds the system instruction and the user text into one user message, the
// shape every deployment accepts, and returns the first choice.
func (c *Completer) Complete(ctx context.Context, system, user string) (string, error) {
	resp, err := c.client.GetChatCompletions(
		ctx,
		azopenai.ChatCompletionsOptions{
			DeploymentName: to.Ptr(c.deploymentID),
			Temperature:    to.Ptr(c.temperature),
			Messages: []azopenai.ChatRequestMessageClassification{
				&azopenai.ChatRequestUserMessage{
					Content: azopenai.NewChatRequestUserMessageContent(composePrompt(system, user)),
				},
			},
		},
		nil,
	)
	if err != nil {
		return "", fmt.Errorf("azure openai chat completion failed: %w", err)
	}

	if len(resp.Choices) > 0 && resp.Choices[0].Message != nil && resp.Choices[0].Message.Content != nil {
		return *resp.Choices[0].Message.Content, nil
	}

	return "", ErrNoCompletion
}

func composePrompt(system, user string) string {
	system = strings.TrimSpace(system)
	if system == "" {
		return user
	}

	return system + "\n\n---\n" + user
}
