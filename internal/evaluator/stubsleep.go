package evaluator

import (
	"time"

	"github.com/evalify/evalify-evaluator/internal/model"
)

// StubSleepEvaluator simulates a slow grading pipeline: it sleeps and then
// awards full marks. Useful for exercising progress tracking end to end.
type StubSleepEvaluator struct {
	// Delay defaults to five seconds when zero.
	Delay time.Duration
}

func (e StubSleepEvaluator) Evaluate(q model.QuestionPayload, _ model.EvaluatorContext) (model.EvaluatorResult, error) {
	delay := e.Delay
	if delay == 0 {
		delay = 5 * time.Second
	}
	time.Sleep(delay)
	return model.EvaluatorResult{
		Score:    q.TotalScore,
		Feedback: "Stub evaluator awarded full marks after sleep",
	}, nil
}
