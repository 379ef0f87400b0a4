package evaluator

import (
	"github.com/evalify/evalify-evaluator/internal/model"
)

// MatchEvaluator grades pairwise-matching questions. Both answers are
// normalized into a map from left-item id to the set of matched right-item
// ids, so pairing order and duplicate order never affect the score.
// All-or-nothing: every left item's right-set must match exactly.
type MatchEvaluator struct{}

func (MatchEvaluator) Evaluate(q model.QuestionPayload, _ model.EvaluatorContext) (model.EvaluatorResult, error) {
	if q.StudentAnswer == nil {
		return model.EvaluatorResult{Score: 0, Feedback: "No answer provided"}, nil
	}

	studentPairs, err := normalizeMatchingPairs(q.StudentAnswer)
	if err != nil {
		return model.EvaluatorResult{}, err
	}
	expectedPairs, err := normalizeMatchingPairs(unwrapSolution(q.ExpectedAnswer))
	if err != nil {
		return model.EvaluatorResult{}, err
	}

	if !sameLeftItems(studentPairs, expectedPairs) {
		return model.EvaluatorResult{}, businessErrorf("student answer does not contain all required matching items")
	}

	for id, expected := range expectedPairs {
		if !setsEqual(studentPairs[id], expected) {
			return model.EvaluatorResult{Score: 0, Feedback: "Incorrect"}, nil
		}
	}
	return model.EvaluatorResult{Score: q.TotalScore, Feedback: "Correct"}, nil
}

// unwrapSolution accepts either the backend's MatchingSolution envelope
// ({"options": [...]}) or a bare pair list.
func unwrapSolution(value any) any {
	if m, ok := value.(map[string]any); ok {
		if options, ok := m["options"]; ok {
			return options
		}
	}
	return value
}

// normalizeMatchingPairs converts a pair list ([{id, matchPairIds}, ...])
// into a map from left id to the set of right ids.
func normalizeMatchingPairs(value any) (map[string]map[string]struct{}, error) {
	items, ok := value.([]any)
	if !ok {
		return nil, businessErrorf("invalid matching answer format: expected list, got %T", value)
	}

	result := make(map[string]map[string]struct{}, len(items))
	for _, raw := range items {
		item, ok := raw.(map[string]any)
		if !ok {
			return nil, businessErrorf("invalid matching item format: expected object, got %T", raw)
		}

		id, ok := item["id"].(string)
		if !ok {
			return nil, businessErrorf("invalid matching item: missing 'id' or 'matchPairIds' key")
		}
		rawPairs, ok := item["matchPairIds"]
		if !ok {
			return nil, businessErrorf("invalid matching item: missing 'id' or 'matchPairIds' key")
		}
		pairIDs, ok := rawPairs.([]any)
		if !ok {
			return nil, businessErrorf("invalid matchPairIds format for item %s: expected list, got %T", id, rawPairs)
		}

		set := make(map[string]struct{}, len(pairIDs))
		for _, p := range pairIDs {
			s, ok := p.(string)
			if !ok {
				return nil, businessErrorf("invalid matchPairIds format for item %s: expected string ids", id)
			}
			set[s] = struct{}{}
		}
		result[id] = set
	}
	return result, nil
}

func sameLeftItems(a, b map[string]map[string]struct{}) bool {
	if len(a) != len(b) {
		return false
	}
	for id := range a {
		if _, ok := b[id]; !ok {
			return false
		}
	}
	return true
}
