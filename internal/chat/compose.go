package chat

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bookwise/bookwise/internal/genai"
)

// Fallback texts used when the composition round-trip to the provider fails.
// Provider failures on this second call must never propagate to the caller.
const (
	fallbackRephrase = "I couldn't turn that into a library query. Could you rephrase or clarify your request?"
	fallbackReadOnly = "This system only supports data retrieval operations, not data modification. Please rephrase your query to retrieve information instead."
	fallbackNoResult = "Nothing was found for that request. Try different casing, double-check the spelling, or broaden the search."
	fallbackCreated  = "The records were created successfully."
)

// readOnlyRejection is returned for mutation-like instructions in read-only
// mode, before any provider call is made.
const readOnlyRejection = "This system is currently limited to data retrieval only. Creation, updating, or deletion of records is not supported. Please rephrase your query to retrieve information instead."

// unsafeQueryRejection is returned when the sanitizer catches a write
// operation in generated code under a read-only policy.
const unsafeQueryRejection = "For security reasons, this system only supports data retrieval operations. The generated query appears to be attempting to modify data."

// Composer turns execution outcomes into user-facing messages, asking the
// generation provider to phrase them and degrading to fixed text when that
// second round-trip fails.
type Composer struct {
	generator genai.Generator
	logger    *slog.Logger
}

func NewComposer(generator genai.Generator, logger *slog.Logger) *Composer {
	return &Composer{generator: generator, logger: logger}
}

func (c *Composer) generate(ctx context.Context, prompt, fallback string) string {
	text, err := c.generator.Generate(ctx, prompt)
	if err != nil {
		c.logger.Warn("response composition degraded to fixed text", slog.String("error", err.Error()))
		return fallback
	}
	return strings.TrimSpace(text)
}

// Rephrase composes the could-not-translate reply.
func (c *Composer) Rephrase(ctx context.Context, instruction string, policy Policy) string {
	return c.generate(ctx, BuildRephrasePrompt(instruction, policy), fallbackMessage(policy))
}

// NoResult composes the nothing-found reply with remediation suggestions.
func (c *Composer) NoResult(ctx context.Context, query string) string {
	return c.generate(ctx, BuildNoResultPrompt(query), fallbackNoResult)
}

// Created composes the mutation confirmation from the created record.
func (c *Composer) Created(ctx context.Context, result any) string {
	return c.generate(ctx, BuildCreationPrompt(renderResult(result)), fallbackCreated)
}

// ReadResult composes the human-readable rewrite of a result set. The
// fallback is the serialized data itself rather than a canned line, so a
// degraded reply still answers the question.
func (c *Composer) ReadResult(ctx context.Context, result any) string {
	data := renderResult(result)
	return c.generate(ctx, BuildFormatPrompt(data), data)
}

// ExecutionError formats the fixed-shape execution failure message.
func ExecutionError(err error) string {
	return fmt.Sprintf("Error executing the query: %s", err.Error())
}

func fallbackMessage(policy Policy) string {
	if policy.AllowMutations {
		return fallbackRephrase
	}
	return fallbackReadOnly
}

// renderResult serializes an execution result field by field: slices become
// one indented JSON document per element, everything else a single document.
func renderResult(result any) string {
	if items, ok := result.([]any); ok {
		parts := make([]string, 0, len(items))
		for _, item := range items {
			parts = append(parts, renderOne(item))
		}
		return strings.Join(parts, "\n")
	}
	return renderOne(result)
}

func renderOne(value any) string {
	data, err := json.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", value)
	}
	return string(data)
}
