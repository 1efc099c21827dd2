package chat

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/bookwise/bookwise/internal/genai"
	"github.com/bookwise/bookwise/internal/library"
	"github.com/bookwise/bookwise/internal/observability"
)

// AuditEntry captures one pipeline run for the audit trail.
type AuditEntry struct {
	CallerID    string
	Mode        Mode
	Instruction string
	Generated   string
	Sanitized   string
	Outcome     Outcome
	Success     bool
}

// Auditor records pipeline runs. Recording is best effort; implementations
// must not fail the request.
type Auditor interface {
	Record(ctx context.Context, entry AuditEntry)
}

// NopAuditor discards audit entries.
type NopAuditor struct{}

func (NopAuditor) Record(context.Context, AuditEntry) {}

// Pipeline runs the full instruction-to-reply cycle. One instance is safe for
// concurrent use; every Execute call is an independent request-response cycle
// with no shared state beyond the store.
type Pipeline struct {
	generator  genai.Generator
	dispatcher *Dispatcher
	composer   *Composer
	policy     Policy
	auditor    Auditor
	logger     *slog.Logger
}

func NewPipeline(store library.Store, generator genai.Generator, policy Policy, auditor Auditor, logger *slog.Logger) *Pipeline {
	if auditor == nil {
		auditor = NopAuditor{}
	}
	return &Pipeline{
		generator:  generator,
		dispatcher: NewDispatcher(store, policy),
		composer:   NewComposer(generator, logger),
		policy:     policy,
		auditor:    auditor,
		logger:     logger,
	}
}

// Execute runs one instruction on behalf of callerID (empty when no library
// user could be resolved for the authenticated identity).
func (p *Pipeline) Execute(ctx context.Context, instruction, callerID string) Result {
	start := time.Now()
	instruction = strings.TrimSpace(instruction)

	result, outcome, generated, sanitized := p.run(ctx, instruction, callerID)

	p.auditor.Record(ctx, AuditEntry{
		CallerID:    callerID,
		Mode:        p.policy.Mode(),
		Instruction: instruction,
		Generated:   generated,
		Sanitized:   sanitized,
		Outcome:     outcome,
		Success:     result.Success,
	})
	observability.ObserveChatRequest(string(p.policy.Mode()), string(outcome), time.Since(start))
	p.logger.Info("chat pipeline completed",
		slog.String("mode", string(p.policy.Mode())),
		slog.String("outcome", string(outcome)),
		slog.Bool("success", result.Success),
		slog.Duration("elapsed", time.Since(start)),
	)
	return result
}

func (p *Pipeline) run(ctx context.Context, instruction, callerID string) (Result, Outcome, string, string) {
	mutation := LooksLikeMutation(instruction, p.policy)

	// Read-only deployments reject mutation-shaped instructions before any
	// provider call is made.
	if mutation && !p.policy.AllowMutations {
		observability.IncrementRejectedMutation()
		return Result{Success: false, Error: readOnlyRejection}, OutcomeUnsafeRejected, "", ""
	}

	genStart := time.Now()
	generated, err := p.generator.Generate(ctx, BuildQueryPrompt(instruction, callerID, mutation, p.policy))
	observability.ObserveGenerationLatency(time.Since(genStart))
	if err != nil || strings.TrimSpace(generated) == "" {
		if err != nil {
			p.logger.Warn("query generation unavailable", slog.String("error", err.Error()))
		}
		// A provider outage says nothing about the instruction, so the reply
		// is the generic rephrase text in every mode.
		return Result{Success: false, Error: fallbackRephrase}, OutcomeGenerationUnavailable, "", ""
	}
	generated = strings.TrimSpace(generated)

	sanitized := Sanitize(generated)

	if IsNotTranslatable(sanitized) {
		message := p.composer.Rephrase(ctx, instruction, p.policy)
		return Result{Success: false, Error: message, Generated: generated}, OutcomeNotTranslatable, generated, sanitized
	}

	// The sanitizer check is the authoritative boundary: even if the
	// classifier and the prompt both missed a mutation, generated write
	// operations never reach the store in read-only mode.
	if !p.policy.AllowMutations && ContainsWriteOperation(sanitized) {
		observability.IncrementRejectedMutation()
		return Result{Success: false, Error: unsafeQueryRejection, Generated: generated}, OutcomeUnsafeRejected, generated, sanitized
	}

	call, err := ParseCall(sanitized)
	if err != nil {
		p.logger.Warn("generated call did not parse", slog.String("error", err.Error()), slog.String("query", sanitized))
		return Result{Success: false, Error: ExecutionError(err), Generated: generated}, OutcomeExecutionError, generated, sanitized
	}

	value, mutated, err := p.dispatcher.Dispatch(ctx, call, callerID)
	if err != nil {
		p.logger.Warn("query execution failed", slog.String("error", err.Error()), slog.String("query", sanitized))
		return Result{Success: false, Error: ExecutionError(err), Generated: generated}, OutcomeExecutionError, generated, sanitized
	}

	if mutated {
		message := p.composer.Created(ctx, value)
		return Result{Success: true, Query: sanitized, Result: message}, OutcomeMutationSuccess, generated, sanitized
	}

	if isEmptyValue(value) {
		message := p.composer.NoResult(ctx, sanitized)
		return Result{Success: false, Error: message}, OutcomeEmptyResult, generated, sanitized
	}

	message := p.composer.ReadResult(ctx, value)
	return Result{Success: true, Query: sanitized, Result: message}, OutcomeReadSuccess, generated, sanitized
}

// isEmptyValue mirrors the falsy test the composer contract specifies: a nil
// single-record lookup, an empty list, or a zero count all take the
// empty-result branch. Aggregate objects are never empty.
func isEmptyValue(value any) bool {
	switch v := value.(type) {
	case nil:
		return true
	case []any:
		return len(v) == 0
	case int64:
		return v == 0
	default:
		return false
	}
}
