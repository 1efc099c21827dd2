package chat

import "strings"

var mutationKeywords = []string{"add", "create", "insert", "new", "register"}

// readOnlyKeywords extends the vocabulary in read-only deployments so that
// update- and delete-shaped instructions are caught before any generation.
var readOnlyKeywords = []string{"update", "delete", "remove", "modify"}

// LooksLikeMutation reports whether the instruction reads like a write
// request. This is a substring heuristic used for prompt selection and for the
// early read-only rejection; the sanitizer remains the authoritative safety
// boundary.
func LooksLikeMutation(instruction string, policy Policy) bool {
	lowered := strings.ToLower(instruction)
	for _, kw := range mutationKeywords {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	if !policy.AllowMutations {
		for _, kw := range readOnlyKeywords {
			if strings.Contains(lowered, kw) {
				return true
			}
		}
	}
	return false
}
