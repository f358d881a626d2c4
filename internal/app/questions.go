package app

import (
	"context"
	"time"

	"github.com/google/uuid"

	"quizhub-api/internal/auth"
	"quizhub-api/internal/domain"
)

// QuestionInput carries the editable fields of a question.
type QuestionInput struct {
	Prompt     string                `json:"prompt"`
	Answers    []domain.AnswerOption `json:"answers"`
	Feedback   domain.Feedback       `json:"feedback"`
	Difficulty string                `json:"difficulty"`
	Type       string                `json:"type"`
	Topic      string                `json:"topic"`
	Points     int                   `json:"points"`
	Status     string                `json:"status"`
}

// QuestionService handles question CRUD. Mutations are gated to
// EDITOR/ADMIN/SUPER_ADMIN; the allow-list is spelled out at each call site.
type QuestionService struct {
	questions QuestionStore
	now       func() time.Time
}

func NewQuestionService(questions QuestionStore, now func() time.Time) *QuestionService {
	if now == nil {
		now = time.Now
	}
	return &QuestionService{questions: questions, now: now}
}

func (s *QuestionService) Create(ctx context.Context, identity domain.Identity, input QuestionInput) (*domain.Question, error) {
	if err := auth.Require(identity, domain.RoleEditor, domain.RoleAdmin, domain.RoleSuperAdmin); err != nil {
		return nil, err
	}
	if err := validateQuestionInput(input); err != nil {
		return nil, err
	}

	question := &domain.Question{
		ID:             uuid.NewString(),
		Prompt:         input.Prompt,
		Answers:        input.Answers,
		Feedback:       input.Feedback,
		Difficulty:     input.Difficulty,
		Type:           input.Type,
		Topic:          input.Topic,
		Points:         input.Points,
		Status:         input.Status,
		CreatedBy:      identity.ID,
		LastModifiedBy: identity.ID,
		Version:        1,
		CreatedAt:      s.now(),
		UpdatedAt:      s.now(),
	}
	if err := s.questions.InsertQuestion(ctx, question); err != nil {
		return nil, err
	}
	return question, nil
}

// Update replaces the editable fields in place, bumping the version counter
// and stamping the caller as last modifier.
func (s *QuestionService) Update(ctx context.Context, identity domain.Identity, id string, input QuestionInput) (*domain.Question, error) {
	if err := auth.Require(identity, domain.RoleEditor, domain.RoleAdmin, domain.RoleSuperAdmin); err != nil {
		return nil, err
	}
	if err := validateQuestionInput(input); err != nil {
		return nil, err
	}

	question, err := s.questions.FindQuestionByID(ctx, id)
	if err != nil {
		return nil, err
	}

	question.Prompt = input.Prompt
	question.Answers = input.Answers
	question.Feedback = input.Feedback
	question.Difficulty = input.Difficulty
	question.Type = input.Type
	question.Topic = input.Topic
	question.Points = input.Points
	question.Status = input.Status
	question.LastModifiedBy = identity.ID
	question.Version++
	question.UpdatedAt = s.now()

	if err := s.questions.UpdateQuestion(ctx, question); err != nil {
		return nil, err
	}
	return question, nil
}

func (s *QuestionService) Delete(ctx context.Context, identity domain.Identity, id string) error {
	if err := auth.Require(identity, domain.RoleEditor, domain.RoleAdmin, domain.RoleSuperAdmin); err != nil {
		return err
	}
	if _, err := s.questions.FindQuestionByID(ctx, id); err != nil {
		return err
	}
	return s.questions.DeleteQuestion(ctx, id)
}

func (s *QuestionService) Get(ctx context.Context, id string) (*domain.Question, error) {
	return s.questions.FindQuestionByID(ctx, id)
}

func (s *QuestionService) List(ctx context.Context, limit int) ([]domain.Question, error) {
	return s.questions.ListQuestions(ctx, limit)
}

func validateQuestionInput(input QuestionInput) error {
	if input.Prompt == "" {
		return domain.Validation("prompt is required")
	}
	if len(input.Answers) == 0 {
		return domain.Validation("at least one answer option is required")
	}
	correct := 0
	for _, a := range input.Answers {
		if a.Text == "" {
			return domain.Validation("answer text is required")
		}
		if a.Correct {
			correct++
		}
	}
	if correct == 0 {
		return domain.Validation("at least one answer must be marked correct")
	}
	if input.Points < 0 {
		return domain.Validation("points must be non-negative")
	}
	return nil
}
