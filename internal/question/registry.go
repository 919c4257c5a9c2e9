package question

import (
	"fmt"
	"strings"
	"sync"

	"flagquiz-service/internal/domain"
)

// Validator compares a submitted answer against a question's canonical
// answer. It returns whether the answer is correct and a short explanation
// suitable for showing the user once their ledger is terminal.
type Validator func(q domain.Question, submitted domain.Answer) (bool, string)

// Registry dispatches validation strictly on question format. It is the
// single extension point for new formats: register a validator and a
// canonical-answer shape, and nothing else changes. Validation of an
// unknown format fails closed, never silently correct.
type Registry struct {
	mu         sync.RWMutex
	validators map[string]Validator
}

// NewRegistry returns a registry with the built-in formats registered.
func NewRegistry() *Registry {
	r := &Registry{validators: make(map[string]Validator)}
	r.Register(domain.FormatTextInput, validateTextInput)
	r.Register(domain.FormatMultipleChoice, validateMultipleChoice)
	r.Register(domain.FormatTrueFalse, validateTrueFalse)
	return r
}

// Register installs or replaces the validator for a format.
func (r *Registry) Register(format string, v Validator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.validators[format] = v
}

// Validate dispatches on the question's format. A missing validator is a
// data-integrity defect, not a crash: the answer is treated as incorrect.
func (r *Registry) Validate(q domain.Question, submitted domain.Answer) (bool, string) {
	r.mu.RLock()
	v, ok := r.validators[q.Format]
	r.mu.RUnlock()
	if !ok {
		return false, "unsupported format"
	}
	return v(q, submitted)
}

func validateTextInput(q domain.Question, submitted domain.Answer) (bool, string) {
	canonical := q.Canonical.Text
	if canonical == nil {
		return false, "unsupported format"
	}
	got := strings.ToLower(strings.TrimSpace(submitted.Text))
	explanation := "Correct answer: " + canonical.Answer
	if got == "" {
		return false, explanation
	}
	if got == strings.ToLower(canonical.Answer) {
		return true, explanation
	}
	for _, alt := range canonical.Alternates {
		if got == strings.ToLower(alt) {
			return true, explanation
		}
	}
	return false, explanation
}

func validateMultipleChoice(q domain.Question, submitted domain.Answer) (bool, string) {
	canonical := q.Canonical.Choice
	if canonical == nil {
		return false, "unsupported format"
	}
	explanation := "Correct answer: " + canonical.Correct
	return submitted.SelectedOption == canonical.Correct, explanation
}

func validateTrueFalse(q domain.Question, submitted domain.Answer) (bool, string) {
	canonical := q.Canonical.Bool
	if canonical == nil {
		return false, "unsupported format"
	}
	explanation := fmt.Sprintf("The statement is %t", canonical.Answer)
	if submitted.Truth == nil {
		return false, explanation
	}
	return *submitted.Truth == canonical.Answer, explanation
}
