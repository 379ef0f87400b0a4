package evaluator

import (
	"strings"

	"github.com/evalify/evalify-evaluator/internal/model"
)

// TrueFalseEvaluator grades boolean questions. Answers may be booleans or
// the case-insensitive strings "true"/"false"; anything else is a business
// failure.
type TrueFalseEvaluator struct{}

func (TrueFalseEvaluator) Evaluate(q model.QuestionPayload, _ model.EvaluatorContext) (model.EvaluatorResult, error) {
	if q.StudentAnswer == nil {
		return model.EvaluatorResult{}, businessErrorf("student submission was empty")
	}

	studentValue, err := normalizeBoolean(q.StudentAnswer)
	if err != nil {
		return model.EvaluatorResult{}, err
	}
	expectedValue, err := normalizeBoolean(q.ExpectedAnswer)
	if err != nil {
		return model.EvaluatorResult{}, err
	}

	if studentValue == expectedValue {
		return model.EvaluatorResult{Score: q.TotalScore, Feedback: "Correct"}, nil
	}
	return model.EvaluatorResult{Score: 0, Feedback: "Incorrect"}, nil
}

func normalizeBoolean(value any) (bool, error) {
	switch v := value.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true":
			return true, nil
		case "false":
			return false, nil
		default:
			return false, businessErrorf("invalid true/false answer format: %q - expected 'true' or 'false'", v)
		}
	default:
		return false, businessErrorf("invalid true/false answer type: expected bool/string, got %T", value)
	}
}
