// Package prompt collects step answers from a human or resolves them
// non-interactively. Navigation (back, skip, cancel) is an ordinary result
// variant returned to the engine, never an error or a panic unwinding
// through call frames.
package prompt

// Kind tags the variant of an Outcome.
type Kind int

const (
	// KindValue carries an answered value.
	KindValue Kind = iota
	// KindBack asks the engine to revisit the previous step.
	KindBack
	// KindSkip asks the engine to record the step's default and move on.
	KindSkip
	// KindCancel abandons the run deliberately.
	KindCancel
)

// String returns the lowercase variant name.
func (k Kind) String() string {
	switch k {
	case KindValue:
		return "value"
	case KindBack:
		return "back"
	case KindSkip:
		return "skip"
	case KindCancel:
		return "cancel"
	}
	return "unknown"
}

// Outcome is the discriminated result of one input request.
type Outcome struct {
	Kind  Kind
	Value string
}

// Value wraps an answered value.
func Value(v string) Outcome { return Outcome{Kind: KindValue, Value: v} }

// Back is the backward-navigation outcome.
func Back() Outcome { return Outcome{Kind: KindBack} }

// Skip is the skip-this-step outcome.
func Skip() Outcome { return Outcome{Kind: KindSkip} }

// Cancel is the abandon-the-run outcome.
func Cancel() Outcome { return Outcome{Kind: KindCancel} }
