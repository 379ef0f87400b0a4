package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/evalify/evalify-evaluator/internal/model"
)

// ErrQuizNotFound distinguishes a missing quiz from a transport failure.
var ErrQuizNotFound = errors.New("quiz not found")

// QuizRepository is the retrieval service: it provides the quiz, its
// ordered question set and the stored student submissions.
type QuizRepository interface {
	GetQuiz(ctx context.Context, quizID string) (*model.Quiz, error)
	GetQuestions(ctx context.Context, quizID string) ([]model.Question, error)
	GetResponses(ctx context.Context, quizID string) ([]model.QuizResponse, error)
}

type quizRepository struct {
	quizzes   *mongo.Collection
	questions *mongo.Collection
	responses *mongo.Collection
}

// NewQuizRepository creates a Mongo-backed retrieval repository.
func NewQuizRepository(db *mongo.Database) QuizRepository {
	return &quizRepository{
		quizzes:   db.Collection("quizzes"),
		questions: db.Collection("questions"),
		responses: db.Collection("responses"),
	}
}

func (r *quizRepository) GetQuiz(ctx context.Context, quizID string) (*model.Quiz, error) {
	var quiz model.Quiz
	err := r.quizzes.FindOne(ctx, bson.M{"_id": quizID}).Decode(&quiz)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", ErrQuizNotFound, quizID)
	}
	if err != nil {
		return nil, fmt.Errorf("fetch quiz %s: %w", quizID, err)
	}
	return &quiz, nil
}

func (r *quizRepository) GetQuestions(ctx context.Context, quizID string) ([]model.Question, error) {
	opts := options.Find().SetSort(bson.D{{Key: "orderIndex", Value: 1}})
	cursor, err := r.questions.Find(ctx, bson.M{"quizId": quizID}, opts)
	if err != nil {
		return nil, fmt.Errorf("fetch questions for quiz %s: %w", quizID, err)
	}
	defer cursor.Close(ctx)

	var questions []model.Question
	if err := cursor.All(ctx, &questions); err != nil {
		return nil, fmt.Errorf("decode questions for quiz %s: %w", quizID, err)
	}
	return questions, nil
}

func (r *quizRepository) GetResponses(ctx context.Context, quizID string) ([]model.QuizResponse, error) {
	cursor, err := r.responses.Find(ctx, bson.M{"quizId": quizID})
	if err != nil {
		return nil, fmt.Errorf("fetch responses for quiz %s: %w", quizID, err)
	}
	defer cursor.Close(ctx)

	var responses []model.QuizResponse
	if err := cursor.All(ctx, &responses); err != nil {
		return nil, fmt.Errorf("decode responses for quiz %s: %w", quizID, err)
	}
	return responses, nil
}
