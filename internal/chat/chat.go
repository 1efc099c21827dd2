// Package chat implements the natural-language query pipeline: an instruction
// is classified, translated into a single persistence call by the generation
// provider, sanitized, dispatched through a closed table against the library
// store, and the outcome is composed into a conversational reply.
package chat

// Mode identifies the deployment flavor of a pipeline instance.
type Mode string

const (
	// ModeReadOnly rejects every mutation, both heuristically and in the
	// sanitizer.
	ModeReadOnly Mode = "read_only"
	// ModeMixed allows create operations alongside reads.
	ModeMixed Mode = "mixed"
)

// Policy parameterizes one pipeline instance. A single Pipeline serves both
// the member-facing and the admin-facing endpoint; only the policy differs.
type Policy struct {
	AllowMutations bool
	// MaxResults caps findMany result sets regardless of what the generated
	// call asks for.
	MaxResults int
}

func (p Policy) Mode() Mode {
	if p.AllowMutations {
		return ModeMixed
	}
	return ModeReadOnly
}

// Outcome labels how a pipeline run ended. Used for audit records and metrics.
type Outcome string

const (
	OutcomeReadSuccess           Outcome = "read_success"
	OutcomeMutationSuccess       Outcome = "mutation_success"
	OutcomeEmptyResult           Outcome = "empty_result"
	OutcomeNotTranslatable       Outcome = "not_translatable"
	OutcomeGenerationUnavailable Outcome = "generation_unavailable"
	OutcomeUnsafeRejected        Outcome = "unsafe_rejected"
	OutcomeExecutionError        Outcome = "execution_error"
)

// Result is the outward shape of one pipeline run. Message carries the
// user-facing text on success; Error carries it on failure. Generated is the
// raw provider output and Query the sanitized call, both kept for diagnostics.
type Result struct {
	Success   bool   `json:"success"`
	Error     string `json:"error,omitempty"`
	Generated string `json:"generated,omitempty"`
	Result    string `json:"result,omitempty"`
	Query     string `json:"query,omitempty"`
}
