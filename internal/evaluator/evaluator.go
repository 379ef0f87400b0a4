// Package evaluator contains the pluggable grading strategies and the
// registry that routes question types to them.
package evaluator

import (
	"errors"
	"fmt"

	"github.com/evalify/evalify-evaluator/internal/model"
)

// ErrNotImplemented signals that no evaluator is registered for a question
// type. Callers treat this as a normal terminal outcome, not a fault.
var ErrNotImplemented = errors.New("no evaluator implemented for question type")

// BusinessError is a predictable grading-input problem: the submission is
// malformed in an expected way. It is a correct outcome of grading (scored
// zero with a reason) and is never retried.
type BusinessError struct {
	Reason string
}

func (e *BusinessError) Error() string {
	return e.Reason
}

func businessErrorf(format string, args ...any) error {
	return &BusinessError{Reason: fmt.Sprintf(format, args...)}
}

// Evaluator grades one question. Implementations must return a
// *BusinessError for malformed-but-expected input; any other error is
// treated as a system fault by the task layer.
type Evaluator interface {
	Evaluate(question model.QuestionPayload, ctx model.EvaluatorContext) (model.EvaluatorResult, error)
}

// Registry maps question-type tags to evaluators. It is populated once at
// startup and passed by reference to dispatchers; no package-level state.
type Registry struct {
	evaluators map[string]Evaluator
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{evaluators: make(map[string]Evaluator)}
}

// Register binds a question type to an evaluator. Binding an already-bound
// tag is a startup error, not a runtime overwrite.
func (r *Registry) Register(questionType string, e Evaluator) error {
	if _, exists := r.evaluators[questionType]; exists {
		return fmt.Errorf("duplicate evaluator registered for type %q", questionType)
	}
	r.evaluators[questionType] = e
	return nil
}

// Resolve returns the evaluator bound to the question type, or
// ErrNotImplemented for unknown tags.
func (r *Registry) Resolve(questionType string) (Evaluator, error) {
	e, ok := r.evaluators[questionType]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotImplemented, questionType)
	}
	return e, nil
}

// NewDefaultRegistry registers every built-in evaluator.
func NewDefaultRegistry() (*Registry, error) {
	r := NewRegistry()
	for tag, e := range map[string]Evaluator{
		"MCQ":        MCQEvaluator{},
		"TRUE_FALSE": TrueFalseEvaluator{},
		"MATCHING":   MatchEvaluator{},
		"STUB_SLEEP": StubSleepEvaluator{},
	} {
		if err := r.Register(tag, e); err != nil {
			return nil, err
		}
	}
	return r, nil
}
