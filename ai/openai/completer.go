// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package openai

import (
	"context"
	"log/slog"

	"github.com/poiesic/recall/ai"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

// Completer implements ai.Completer using OpenAI-compatible chat APIs.
type Completer struct {
	client llms.Model
	logger *slog.Logger
}

// newCompleter is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newCompleter(config *ai.Config) (*Completer, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Create OpenAI client configured for chat completions
	client, err := openai.New(
		openai.WithBaseURL(config.CompletionHost),
		openai.WithToken(config.APIToken),
		openai.WithModel(config.CompletionModel),
	)
	if err != nil {
		return nil, err
	}

	return &Completer{
		client: client,
		logger: slog.Default().With("component", "openai-completer"),
	}, nil
}

// NewCompleter creates a new completer using the provided configuration.
//
// Returns ai.Completer interface to enforce abstraction.
func NewCompleter(config *ai.Config) (ai.Completer, error) {
	return newCompleter(config)
}

// Complete generates a chat completion for the given messages and returns
// the full response text.
func (c *Completer) Complete(ctx context.Context, messages []ai.Message, opts ...ai.CompleteOption) (string, error) {
	options := ai.ApplyCompleteOptions(opts...)
	content := buildContent(messages)

	c.logger.Debug("generating completion", "messages", len(messages))

	response, err := c.client.GenerateContent(ctx, content, buildCallOptions(options)...)
	if err != nil {
		c.logger.Error("failed to generate completion", "err", err)
		return "", err
	}

	if len(response.Choices) < 1 {
		c.logger.Warn("no choices returned from model")
		return "", nil
	}

	return response.Choices[0].Content, nil
}

// Stream generates a chat completion, invoking fn with each chunk of the
// response as it arrives. The full response text is returned once the
// stream completes.
func (c *Completer) Stream(ctx context.Context, messages []ai.Message, fn ai.StreamFunc, opts ...ai.CompleteOption) (string, error) {
	options := ai.ApplyCompleteOptions(opts...)
	content := buildContent(messages)

	callOpts := buildCallOptions(options)
	callOpts = append(callOpts, llms.WithStreamingFunc(fn))

	c.logger.Debug("generating streamed completion", "messages", len(messages))

	response, err := c.client.GenerateContent(ctx, content, callOpts...)
	if err != nil {
		c.logger.Error("failed to generate streamed completion", "err", err)
		return "", err
	}

	if len(response.Choices) < 1 {
		c.logger.Warn("no choices returned from model")
		return "", nil
	}

	return response.Choices[0].Content, nil
}

// buildContent converts ai messages into langchaingo message content.
func buildContent(messages []ai.Message) []llms.MessageContent {
	content := make([]llms.MessageContent, 0, len(messages))
	for _, m := range messages {
		content = append(content, llms.MessageContent{
			Role:  roleToChatType(m.Role),
			Parts: []llms.ContentPart{llms.TextPart(m.Content)},
		})
	}
	return content
}

func roleToChatType(role ai.Role) llms.ChatMessageType {
	switch role {
	case ai.RoleSystem:
		return llms.ChatMessageTypeSystem
	case ai.RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}

// buildCallOptions maps completion options onto langchaingo call options,
// passing through only the values the caller actually set.
func buildCallOptions(options ai.CompleteOptions) []llms.CallOption {
	var callOpts []llms.CallOption
	if options.Temperature >= 0 {
		callOpts = append(callOpts, llms.WithTemperature(options.Temperature))
	}
	if options.MaxTokens > 0 {
		callOpts = append(callOpts, llms.WithMaxTokens(options.MaxTokens))
	}
	if options.JSONMode {
		callOpts = append(callOpts, llms.WithJSONMode())
	}
	return callOpts
}
