package evaluator

import (
	"strings"

	"github.com/evalify/evalify-evaluator/internal/model"
)

// MCQEvaluator grades multiple-choice questions by comparing the student's
// and expected option sets. All-or-nothing: order, duplicates, case and
// surrounding whitespace are ignored.
type MCQEvaluator struct{}

func (MCQEvaluator) Evaluate(q model.QuestionPayload, _ model.EvaluatorContext) (model.EvaluatorResult, error) {
	studentItems, err := toOptionSet(q.StudentAnswer)
	if err != nil {
		return model.EvaluatorResult{}, err
	}
	expectedItems, err := toOptionSet(q.ExpectedAnswer)
	if err != nil {
		return model.EvaluatorResult{}, err
	}

	if len(studentItems) == 0 {
		return model.EvaluatorResult{Score: 0, Feedback: "No answer provided"}, nil
	}

	if setsEqual(studentItems, expectedItems) {
		return model.EvaluatorResult{Score: q.TotalScore, Feedback: "Correct"}, nil
	}
	return model.EvaluatorResult{Score: 0, Feedback: "Incorrect"}, nil
}

// toOptionSet coerces an opaque answer into a normalized set of option
// identifiers. Strings are wrapped as a single option; lists are flattened.
func toOptionSet(value any) (map[string]struct{}, error) {
	set := make(map[string]struct{})
	switch v := value.(type) {
	case nil:
		return set, nil
	case string:
		if norm := normalizeOption(v); norm != "" {
			set[norm] = struct{}{}
		}
		return set, nil
	case []string:
		for _, item := range v {
			if norm := normalizeOption(item); norm != "" {
				set[norm] = struct{}{}
			}
		}
		return set, nil
	case []any:
		for _, item := range v {
			s, ok := item.(string)
			if !ok {
				return nil, businessErrorf("invalid MCQ answer format: expected option string, got %T", item)
			}
			if norm := normalizeOption(s); norm != "" {
				set[norm] = struct{}{}
			}
		}
		return set, nil
	default:
		return nil, businessErrorf("invalid MCQ answer format: expected list/string, got %T", value)
	}
}

func normalizeOption(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

func setsEqual(a, b map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for k := range a {
		if _, ok := b[k]; !ok {
			return false
		}
	}
	return true
}
