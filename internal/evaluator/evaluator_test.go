package evaluator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evalify/evalify-evaluator/internal/model"
)

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register("MCQ", MCQEvaluator{}))

	err := r.Register("MCQ", MCQEvaluator{})
	require.Error(t, err)

	_, err = r.Resolve("CODING")
	require.ErrorIs(t, err, ErrNotImplemented)

	e, err := r.Resolve("MCQ")
	require.NoError(t, err)
	assert.IsType(t, MCQEvaluator{}, e)
}

func TestDefaultRegistry(t *testing.T) {
	r, err := NewDefaultRegistry()
	require.NoError(t, err)

	for _, tag := range []string{"MCQ", "TRUE_FALSE", "MATCHING", "STUB_SLEEP"} {
		_, err := r.Resolve(tag)
		assert.NoError(t, err, tag)
	}
	_, err = r.Resolve("DESCRIPTIVE")
	assert.ErrorIs(t, err, ErrNotImplemented)
}

func TestMCQEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		student  any
		expected any
		score    float64
		feedback string
	}{
		{
			name:     "exact match",
			student:  []any{"opt-a", "opt-b"},
			expected: []any{"opt-a", "opt-b"},
			score:    10,
			feedback: "Correct",
		},
		{
			name:     "order does not matter",
			student:  []any{"opt-b", "opt-a"},
			expected: []any{"opt-a", "opt-b"},
			score:    10,
			feedback: "Correct",
		},
		{
			name:     "case and whitespace insensitive",
			student:  []any{"  OPT-A ", "Opt-B"},
			expected: []any{"opt-a", "opt-b"},
			score:    10,
			feedback: "Correct",
		},
		{
			name:     "wrong selection",
			student:  []any{"opt-c"},
			expected: []any{"opt-a"},
			score:    0,
			feedback: "Incorrect",
		},
		{
			name:     "partial selection scores zero",
			student:  []any{"opt-a"},
			expected: []any{"opt-a", "opt-b"},
			score:    0,
			feedback: "Incorrect",
		},
		{
			name:     "single string answer",
			student:  "opt-a",
			expected: []any{"opt-a"},
			score:    10,
			feedback: "Correct",
		},
		{
			name:     "empty answer",
			student:  []any{},
			expected: []any{"opt-a"},
			score:    0,
			feedback: "No answer provided",
		},
		{
			name:     "nil answer",
			student:  nil,
			expected: []any{"opt-a"},
			score:    0,
			feedback: "No answer provided",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := MCQEvaluator{}.Evaluate(model.QuestionPayload{
				QuestionType:   "MCQ",
				StudentAnswer:  tt.student,
				ExpectedAnswer: tt.expected,
				TotalScore:     10,
			}, model.EvaluatorContext{})
			require.NoError(t, err)
			assert.Equal(t, tt.score, result.Score)
			assert.Equal(t, tt.feedback, result.Feedback)
		})
	}
}

func TestMCQEvaluateMalformed(t *testing.T) {
	_, err := MCQEvaluator{}.Evaluate(model.QuestionPayload{
		StudentAnswer:  []any{42},
		ExpectedAnswer: []any{"opt-a"},
		TotalScore:     10,
	}, model.EvaluatorContext{})

	var businessErr *BusinessError
	require.ErrorAs(t, err, &businessErr)
}

func TestTrueFalseEvaluate(t *testing.T) {
	tests := []struct {
		name     string
		student  any
		expected any
		score    float64
	}{
		{name: "bool matches bool", student: true, expected: true, score: 5},
		{name: "bool mismatch", student: false, expected: true, score: 0},
		{name: "string true matches", student: "true", expected: true, score: 5},
		{name: "uppercase string", student: "TRUE", expected: true, score: 5},
		{name: "string false vs bool true", student: "false", expected: true, score: 0},
		{name: "string expected answer", student: true, expected: "True", score: 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := TrueFalseEvaluator{}.Evaluate(model.QuestionPayload{
				QuestionType:   "TRUE_FALSE",
				StudentAnswer:  tt.student,
				ExpectedAnswer: tt.expected,
				TotalScore:     5,
			}, model.EvaluatorContext{})
			require.NoError(t, err)
			assert.Equal(t, tt.score, result.Score)
		})
	}
}

func TestTrueFalseBusinessFailures(t *testing.T) {
	tests := []struct {
		name    string
		student any
	}{
		{name: "nil answer", student: nil},
		{name: "unparseable string", student: "yes"},
		{name: "numeric answer", student: 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := TrueFalseEvaluator{}.Evaluate(model.QuestionPayload{
				StudentAnswer:  tt.student,
				ExpectedAnswer: true,
				TotalScore:     5,
			}, model.EvaluatorContext{})

			var businessErr *BusinessError
			require.ErrorAs(t, err, &businessErr)
		})
	}
}

func matchingPairs(pairs map[string][]string) []any {
	items := make([]any, 0, len(pairs))
	for id, rights := range pairs {
		ids := make([]any, 0, len(rights))
		for _, r := range rights {
			ids = append(ids, r)
		}
		items = append(items, map[string]any{"id": id, "matchPairIds": ids})
	}
	return items
}

func TestMatchingEvaluate(t *testing.T) {
	expected := map[string]any{
		"options": matchingPairs(map[string][]string{
			"http":  {"p80"},
			"https": {"p443"},
		}),
	}

	t.Run("all pairs correct", func(t *testing.T) {
		result, err := MatchEvaluator{}.Evaluate(model.QuestionPayload{
			StudentAnswer:  matchingPairs(map[string][]string{"https": {"p443"}, "http": {"p80"}}),
			ExpectedAnswer: expected,
			TotalScore:     15,
		}, model.EvaluatorContext{})
		require.NoError(t, err)
		assert.Equal(t, 15.0, result.Score)
		assert.Equal(t, "Correct", result.Feedback)
	})

	t.Run("one wrong pair scores zero", func(t *testing.T) {
		result, err := MatchEvaluator{}.Evaluate(model.QuestionPayload{
			StudentAnswer:  matchingPairs(map[string][]string{"http": {"p443"}, "https": {"p80"}}),
			ExpectedAnswer: expected,
			TotalScore:     15,
		}, model.EvaluatorContext{})
		require.NoError(t, err)
		assert.Equal(t, 0.0, result.Score)
		assert.Equal(t, "Incorrect", result.Feedback)
	})

	t.Run("missing left item is a business failure", func(t *testing.T) {
		_, err := MatchEvaluator{}.Evaluate(model.QuestionPayload{
			StudentAnswer:  matchingPairs(map[string][]string{"http": {"p80"}}),
			ExpectedAnswer: expected,
			TotalScore:     15,
		}, model.EvaluatorContext{})

		var businessErr *BusinessError
		require.ErrorAs(t, err, &businessErr)
	})

	t.Run("nil answer scores zero", func(t *testing.T) {
		result, err := MatchEvaluator{}.Evaluate(model.QuestionPayload{
			StudentAnswer:  nil,
			ExpectedAnswer: expected,
			TotalScore:     15,
		}, model.EvaluatorContext{})
		require.NoError(t, err)
		assert.Equal(t, 0.0, result.Score)
		assert.Equal(t, "No answer provided", result.Feedback)
	})

	t.Run("malformed pair list is a business failure", func(t *testing.T) {
		_, err := MatchEvaluator{}.Evaluate(model.QuestionPayload{
			StudentAnswer:  []any{map[string]any{"id": "http"}},
			ExpectedAnswer: expected,
			TotalScore:     15,
		}, model.EvaluatorContext{})

		var businessErr *BusinessError
		require.ErrorAs(t, err, &businessErr)
	})
}

func TestStubSleepEvaluate(t *testing.T) {
	result, err := StubSleepEvaluator{Delay: time.Millisecond}.Evaluate(model.QuestionPayload{
		TotalScore: 7,
	}, model.EvaluatorContext{})
	require.NoError(t, err)
	assert.Equal(t, 7.0, result.Score)
}
