package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/evalify/evalify-evaluator/internal/model"
)

func main() {
	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		mongoURI = "mongodb://localhost:27017"
	}
	dbName := os.Getenv("MONGO_DATABASE")
	if dbName == "" {
		dbName = "evalify"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer client.Disconnect(ctx)

	db := client.Database(dbName)
	now := time.Now().UTC()

	quiz := model.Quiz{
		ID:   "quiz-demo-001",
		Name: "Networking Basics",
		Settings: model.QuizSettings{
			"negativeMarking": false,
		},
		StartTime: now.Add(-2 * time.Hour),
		EndTime:   now.Add(-1 * time.Hour),
		CreatedAt: now,
		UpdatedAt: now,
	}

	questions := []model.Question{
		{
			ID:         "q1",
			QuizID:     quiz.ID,
			OrderIndex: 0,
			Type:       "MCQ",
			Marks:      10,
			Text:       "Which protocol does HTTP run over by default?",
			Solution:   []any{"TCP"},
		},
		{
			ID:         "q2",
			QuizID:     quiz.ID,
			OrderIndex: 1,
			Type:       "TRUE_FALSE",
			Marks:      5,
			Text:       "UDP guarantees in-order delivery.",
			Solution:   false,
		},
		{
			ID:         "q3",
			QuizID:     quiz.ID,
			OrderIndex: 2,
			Type:       "MATCHING",
			Marks:      15,
			Text:       "Match each protocol to its default port.",
			Solution: map[string]any{
				"options": []any{
					map[string]any{"id": "http", "matchPairIds": []any{"p80"}},
					map[string]any{"id": "https", "matchPairIds": []any{"p443"}},
					map[string]any{"id": "ssh", "matchPairIds": []any{"p22"}},
				},
			},
		},
	}

	responses := []model.QuizResponse{
		{
			QuizID:    quiz.ID,
			StudentID: "student-alice",
			Answers: map[string]any{
				"q1": []any{"tcp"},
				"q2": "false",
				"q3": []any{
					map[string]any{"id": "http", "matchPairIds": []any{"p80"}},
					map[string]any{"id": "https", "matchPairIds": []any{"p443"}},
					map[string]any{"id": "ssh", "matchPairIds": []any{"p22"}},
				},
			},
			EvaluationStatus: model.EvaluationPending,
		},
		{
			QuizID:    quiz.ID,
			StudentID: "student-bob",
			Answers: map[string]any{
				"q1": []any{"UDP"},
				"q2": true,
			},
			EvaluationStatus: model.EvaluationPending,
		},
	}

	if _, err := db.Collection("quizzes").ReplaceOne(ctx,
		bson.M{"_id": quiz.ID}, quiz, options.Replace().SetUpsert(true)); err != nil {
		log.Fatalf("Failed to seed quiz: %v", err)
	}
	for _, q := range questions {
		if _, err := db.Collection("questions").ReplaceOne(ctx,
			bson.M{"_id": q.ID}, q, options.Replace().SetUpsert(true)); err != nil {
			log.Fatalf("Failed to seed question %s: %v", q.ID, err)
		}
	}
	for _, r := range responses {
		if _, err := db.Collection("responses").ReplaceOne(ctx,
			bson.M{"quizId": r.QuizID, "studentId": r.StudentID}, r, options.Replace().SetUpsert(true)); err != nil {
			log.Fatalf("Failed to seed response for %s: %v", r.StudentID, err)
		}
	}

	fmt.Printf("Seeded quiz %s with %d questions and %d responses\n", quiz.ID, len(questions), len(responses))
}
