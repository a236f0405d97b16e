package analysis

import "context"

// ModelClient is the minimal surface of the external language model: submit
// a prompt, get text back. Implementations may fail or return malformed
// output; recovery belongs to the Analyzer.
type ModelClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}
