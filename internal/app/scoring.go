package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"quizhub-api/internal/domain"
	"quizhub-api/internal/metrics"
)

// SubmissionResult is the caller-facing outcome of one answer submission.
type SubmissionResult struct {
	Success       bool   `json:"success"`
	IsCorrect     bool   `json:"isCorrect"`
	Feedback      string `json:"feedback"`
	PointsAwarded int    `json:"pointsAwarded"`
}

// ScoringService evaluates submitted answers and accrues points.
type ScoringService struct {
	questions   QuestionStore
	submissions SubmissionStore
	metrics     *metrics.Metrics
	now         func() time.Time
}

func NewScoringService(questions QuestionStore, submissions SubmissionStore, m *metrics.Metrics, now func() time.Time) *ScoringService {
	if now == nil {
		now = time.Now
	}
	return &ScoringService{questions: questions, submissions: submissions, metrics: m, now: now}
}

// SubmitAnswer matches the selected answer text against the question's
// options, records the immutable response row and applies the question and
// user counter increments. An unknown answer text rejects the submission
// before any write. Submissions are not deduplicated; a client retry after
// a timeout creates a second row and a second award.
func (s *ScoringService) SubmitAnswer(ctx context.Context, identity domain.Identity, questionID, selectedAnswer string) (*SubmissionResult, error) {
	startedAt := s.now()

	question, err := s.questions.FindQuestionByID(ctx, questionID)
	if err != nil {
		return nil, err
	}

	answer, ok := question.FindAnswer(selectedAnswer)
	if !ok {
		// The question may have been edited since the client fetched it.
		return nil, domain.UserInput("selected answer does not match any option")
	}

	points := 0
	if answer.Correct {
		points = question.PointValue()
	}

	persistedAt := s.now()
	elapsed := persistedAt.Sub(startedAt).Seconds()
	if elapsed < 0 {
		elapsed = 0
	}

	update := SubmissionUpdate{
		Response: &domain.UserResponse{
			ID:             uuid.NewString(),
			UserID:         identity.ID,
			QuestionID:     question.ID,
			SelectedAnswer: selectedAnswer,
			Correct:        answer.Correct,
			TimeToAnswer:   elapsed,
			CreatedAt:      persistedAt,
		},
		Points: points,
	}
	if err := s.submissions.RecordSubmission(ctx, update); err != nil {
		return nil, err
	}

	s.metrics.ObserveSubmission(answer.Correct, elapsed)

	feedback := question.Feedback.Incorrect
	if answer.Correct {
		feedback = question.Feedback.Correct
	}
	return &SubmissionResult{
		Success:       true,
		IsCorrect:     answer.Correct,
		Feedback:      feedback,
		PointsAwarded: points,
	}, nil
}
