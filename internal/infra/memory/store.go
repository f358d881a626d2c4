package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"quizhub-api/internal/app"
	"quizhub-api/internal/domain"
)

// Store is an in-memory implementation of app.Store used by tests and dev
// mode. A single mutex stands in for the document store's atomic update
// primitives.
type Store struct {
	mu        sync.RWMutex
	users     map[string]*domain.User
	questions map[string]*domain.Question
	responses []domain.UserResponse
}

func NewStore() *Store {
	return &Store{
		users:     make(map[string]*domain.User),
		questions: make(map[string]*domain.Question),
	}
}

func (s *Store) InsertUser(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == user.Username {
			return domain.UserInput("username already taken")
		}
		if existing.Email == user.Email {
			return domain.UserInput("email already registered")
		}
	}
	clone := cloneUser(user)
	s.users[user.ID] = &clone
	return nil
}

func (s *Store) FindUserByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[id]
	if !ok {
		return nil, domain.NotFound("user")
	}
	clone := cloneUser(user)
	return &clone, nil
}

func (s *Store) FindUserByUsername(_ context.Context, username string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.Username == username {
			clone := cloneUser(user)
			return &clone, nil
		}
	}
	return nil, domain.NotFound("user")
}

func (s *Store) FindUserByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.Email == email {
			clone := cloneUser(user)
			return &clone, nil
		}
	}
	return nil, domain.NotFound("user")
}

func (s *Store) SetUserRole(_ context.Context, id string, role domain.Role) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return domain.NotFound("user")
	}
	user.Role = role
	return nil
}

func (s *Store) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[id]; !ok {
		return domain.NotFound("user")
	}
	delete(s.users, id)
	return nil
}

func (s *Store) RankedUsers(_ context.Context) ([]domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ranked := make([]domain.User, 0, len(s.users))
	for _, user := range s.users {
		if user.Score != nil {
			ranked = append(ranked, cloneUser(user))
		}
	}
	sort.Slice(ranked, func(i, j int) bool {
		if *ranked[i].Score != *ranked[j].Score {
			return *ranked[i].Score > *ranked[j].Score
		}
		return ranked[i].Username < ranked[j].Username
	})
	return ranked, nil
}

func (s *Store) SetLoginStreak(_ context.Context, id string, days int, lastLogin time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return domain.NotFound("user")
	}
	user.ConsecutiveLoginDays = days
	t := lastLogin
	user.LastLoginDate = &t
	return nil
}

func (s *Store) AppendBadge(_ context.Context, id string, badge domain.Badge) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return domain.NotFound("user")
	}
	user.Badges = append(user.Badges, badge)
	return nil
}

func (s *Store) ApplyStats(_ context.Context, id string, update app.StatsUpdate) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	user, ok := s.users[id]
	if !ok {
		return nil, domain.NotFound("user")
	}

	user.QuestionsAnswered += update.IncQuestionsAnswered
	user.QuestionsCorrect += update.IncQuestionsCorrect
	user.QuestionsIncorrect += update.IncQuestionsIncorrect
	if update.IncPoints > 0 {
		score := update.IncPoints
		if user.Score != nil {
			score += *user.Score
		}
		user.Score = &score
	}

	if update.SetLifetimePoints != nil {
		user.LifetimePoints = *update.SetLifetimePoints
	}
	if update.SetYearlyPoints != nil {
		user.YearlyPoints = *update.SetYearlyPoints
	}
	if update.SetMonthlyPoints != nil {
		user.MonthlyPoints = *update.SetMonthlyPoints
	}
	if update.SetDailyPoints != nil {
		user.DailyPoints = *update.SetDailyPoints
	}
	if update.SetConsecutiveLoginDays != nil {
		user.ConsecutiveLoginDays = *update.SetConsecutiveLoginDays
	}
	if !update.LastLoginDate.IsZero() {
		t := update.LastLoginDate
		user.LastLoginDate = &t
	}
	if update.NewBadge != nil {
		user.Badges = append(user.Badges, *update.NewBadge)
	}

	clone := cloneUser(user)
	return &clone, nil
}

func (s *Store) InsertQuestion(_ context.Context, question *domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := cloneQuestion(question)
	s.questions[question.ID] = &clone
	return nil
}

func (s *Store) FindQuestionByID(_ context.Context, id string) (*domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	question, ok := s.questions[id]
	if !ok {
		return nil, domain.NotFound("question")
	}
	clone := cloneQuestion(question)
	return &clone, nil
}

func (s *Store) ListQuestions(_ context.Context, limit int) ([]domain.Question, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	questions := make([]domain.Question, 0, len(s.questions))
	for _, question := range s.questions {
		questions = append(questions, cloneQuestion(question))
	}
	sort.Slice(questions, func(i, j int) bool {
		return questions[i].CreatedAt.Before(questions[j].CreatedAt)
	})
	if limit > 0 && len(questions) > limit {
		questions = questions[:limit]
	}
	return questions, nil
}

func (s *Store) UpdateQuestion(_ context.Context, question *domain.Question) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[question.ID]; !ok {
		return domain.NotFound("question")
	}
	clone := cloneQuestion(question)
	s.questions[question.ID] = &clone
	return nil
}

func (s *Store) DeleteQuestion(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.questions[id]; !ok {
		return domain.NotFound("question")
	}
	delete(s.questions, id)
	return nil
}

// RecordSubmission validates both documents, then applies the response row,
// the question stat increments and the user counter increments under one
// lock. The average uses the incremental-mean form so it stays stable for
// large counts.
func (s *Store) RecordSubmission(_ context.Context, update app.SubmissionUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	resp := update.Response
	question, ok := s.questions[resp.QuestionID]
	if !ok {
		return domain.NotFound("question")
	}
	user, ok := s.users[resp.UserID]
	if !ok {
		return domain.NotFound("user")
	}

	s.responses = append(s.responses, *resp)

	oldCount := float64(question.Stats.TimesAnswered)
	question.Stats.AverageTimeToAnswer = (question.Stats.AverageTimeToAnswer*oldCount + resp.TimeToAnswer) / (oldCount + 1)
	question.Stats.TimesAnswered++
	if resp.Correct {
		question.Stats.CorrectAnswers++
	}

	user.QuestionsAnswered++
	if resp.Correct {
		user.QuestionsCorrect++
	} else {
		user.QuestionsIncorrect++
	}
	if update.Points > 0 {
		score := update.Points
		if user.Score != nil {
			score += *user.Score
		}
		user.Score = &score
	}
	return nil
}

// Responses returns a copy of the audit trail; used by tests and dev mode.
func (s *Store) Responses() []domain.UserResponse {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.UserResponse, len(s.responses))
	copy(out, s.responses)
	return out
}

func cloneUser(u *domain.User) domain.User {
	clone := *u
	if u.Score != nil {
		score := *u.Score
		clone.Score = &score
	}
	if u.LastLoginDate != nil {
		t := *u.LastLoginDate
		clone.LastLoginDate = &t
	}
	clone.Badges = append([]domain.Badge(nil), u.Badges...)
	return clone
}

func cloneQuestion(q *domain.Question) domain.Question {
	clone := *q
	clone.Answers = append([]domain.AnswerOption(nil), q.Answers...)
	return clone
}
