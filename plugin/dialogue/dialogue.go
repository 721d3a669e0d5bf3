// Package dialogue provides the optional free-form language engine used to
// assist intent extraction. The scheduling core is fully functional without
// it: every caller must tolerate a nil or failing engine and fall back to its
// deterministic path.
package dialogue

import "context"

// Engine generates a completion for a prompt.
type Engine interface {
	Generate(ctx context.Context, prompt string) (string, error)
}
