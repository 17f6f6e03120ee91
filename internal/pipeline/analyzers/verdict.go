// Package analyzers implements the four admission pipeline stages (C3):
// size, face-heuristic, blur-heuristic, and perceptual-hash duplicate
// detection. Each stage is a pure function from image bytes to a Verdict;
// none of them mutate a record directly.
package analyzers

import "context"

// Verdict is the outcome of a single analyzer stage.
type Verdict struct {
	Accept      bool
	Code        string
	Message     string
	Diagnostics map[string]any
}

func accept(diagnostics map[string]any) Verdict {
	return Verdict{Accept: true, Diagnostics: diagnostics}
}

func reject(code, message string, diagnostics map[string]any) Verdict {
	return Verdict{Accept: false, Code: code, Message: message, Diagnostics: diagnostics}
}

// Stage is the function shape every analyzer satisfies.
type Stage func(ctx context.Context, data []byte, cfg Config) (Verdict, error)
