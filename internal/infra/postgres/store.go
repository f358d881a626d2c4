package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgconn"
	"github.com/jackc/pgx/v4"
	"github.com/jackc/pgx/v4/pgxpool"

	"quizhub-api/internal/app"
	"quizhub-api/internal/domain"
)

const uniqueViolation = "23505"

// Store is the Postgres implementation of app.Store. Counters are mutated
// with single-statement increments so concurrent submissions never lose
// updates; the submission path runs inside one transaction, which closes
// the cross-document partial-failure window the document-store contract
// otherwise accepts.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

const userColumns = `id, username, email, password_hash, role, score,
	questions_answered, questions_correct, questions_incorrect,
	lifetime_points, yearly_points, monthly_points, daily_points,
	consecutive_login_days, last_login_date, badges, created_at, updated_at`

func (s *Store) InsertUser(ctx context.Context, user *domain.User) error {
	// A nil slice must land as an empty jsonb array, not jsonb null,
	// or the append-via-concat updates would null out.
	if user.Badges == nil {
		user.Badges = []domain.Badge{}
	}
	badges, err := json.Marshal(user.Badges)
	if err != nil {
		return fmt.Errorf("marshal badges: %w", err)
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		user.ID, user.Username, user.Email, user.PasswordHash, user.Role, user.Score,
		user.QuestionsAnswered, user.QuestionsCorrect, user.QuestionsIncorrect,
		user.LifetimePoints, user.YearlyPoints, user.MonthlyPoints, user.DailyPoints,
		user.ConsecutiveLoginDays, user.LastLoginDate, badges, user.CreatedAt, user.UpdatedAt)
	if isUnique(err) {
		return domain.UserInput("username or email already registered")
	}
	return err
}

func (s *Store) FindUserByID(ctx context.Context, id string) (*domain.User, error) {
	return s.findUser(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
}

func (s *Store) FindUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return s.findUser(ctx, `SELECT `+userColumns+` FROM users WHERE username=$1`, username)
}

func (s *Store) FindUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.findUser(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email)
}

func (s *Store) findUser(ctx context.Context, query string, arg interface{}) (*domain.User, error) {
	row := s.pool.QueryRow(ctx, query, arg)
	return scanUser(row)
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	var badges []byte
	err := row.Scan(
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.Role, &user.Score,
		&user.QuestionsAnswered, &user.QuestionsCorrect, &user.QuestionsIncorrect,
		&user.LifetimePoints, &user.YearlyPoints, &user.MonthlyPoints, &user.DailyPoints,
		&user.ConsecutiveLoginDays, &user.LastLoginDate, &badges, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NotFound("user")
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	if len(badges) > 0 {
		if err := json.Unmarshal(badges, &user.Badges); err != nil {
			return nil, fmt.Errorf("unmarshal badges: %w", err)
		}
	}
	return &user, nil
}

func (s *Store) SetUserRole(ctx context.Context, id string, role domain.Role) error {
	tag, err := s.pool.Exec(ctx, `UPDATE users SET role=$2, updated_at=now() WHERE id=$1`, id, role)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("user")
	}
	return nil
}

func (s *Store) DeleteUser(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM users WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("user")
	}
	return nil
}

func (s *Store) RankedUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT `+userColumns+` FROM users
		WHERE score IS NOT NULL
		ORDER BY score DESC, username ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ranked []domain.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		ranked = append(ranked, *user)
	}
	return ranked, rows.Err()
}

func (s *Store) SetLoginStreak(ctx context.Context, id string, days int, lastLogin time.Time) error {
	tag, err := s.pool.Exec(ctx, `
		UPDATE users SET consecutive_login_days=$2, last_login_date=$3, updated_at=now()
		WHERE id=$1`, id, days, lastLogin)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("user")
	}
	return nil
}

func (s *Store) AppendBadge(ctx context.Context, id string, badge domain.Badge) error {
	payload, err := json.Marshal([]domain.Badge{badge})
	if err != nil {
		return fmt.Errorf("marshal badge: %w", err)
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE users SET badges = badges || $2::jsonb, updated_at=now()
		WHERE id=$1`, id, payload)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("user")
	}
	return nil
}

func (s *Store) ApplyStats(ctx context.Context, id string, update app.StatsUpdate) (*domain.User, error) {
	var badge []byte
	if update.NewBadge != nil {
		payload, err := json.Marshal([]domain.Badge{*update.NewBadge})
		if err != nil {
			return nil, fmt.Errorf("marshal badge: %w", err)
		}
		badge = payload
	}

	row := s.pool.QueryRow(ctx, `
		UPDATE users SET
			questions_answered   = questions_answered + $2,
			questions_correct    = questions_correct + $3,
			questions_incorrect  = questions_incorrect + $4,
			score                = CASE WHEN $5 > 0 THEN COALESCE(score, 0) + $5 ELSE score END,
			lifetime_points      = COALESCE($6, lifetime_points),
			yearly_points        = COALESCE($7, yearly_points),
			monthly_points       = COALESCE($8, monthly_points),
			daily_points         = COALESCE($9, daily_points),
			consecutive_login_days = COALESCE($10, consecutive_login_days),
			last_login_date      = $11,
			badges               = badges || COALESCE($12::jsonb, '[]'::jsonb),
			updated_at           = now()
		WHERE id=$1
		RETURNING `+userColumns,
		id,
		update.IncQuestionsAnswered, update.IncQuestionsCorrect, update.IncQuestionsIncorrect,
		update.IncPoints,
		update.SetLifetimePoints, update.SetYearlyPoints, update.SetMonthlyPoints,
		update.SetDailyPoints, update.SetConsecutiveLoginDays,
		update.LastLoginDate, badge)
	return scanUser(row)
}

func (s *Store) InsertQuestion(ctx context.Context, question *domain.Question) error {
	answers, feedback, err := marshalQuestionDocs(question)
	if err != nil {
		return err
	}
	_, err = s.pool.Exec(ctx, `
		INSERT INTO questions (id, prompt, answers, feedback, difficulty, type, topic,
			points, status, times_answered, correct_answers, average_time_to_answer,
			difficulty_rating, created_by, last_modified_by, version, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`,
		question.ID, question.Prompt, answers, feedback, question.Difficulty,
		question.Type, question.Topic, question.Points, question.Status,
		question.Stats.TimesAnswered, question.Stats.CorrectAnswers,
		question.Stats.AverageTimeToAnswer, question.Stats.DifficultyRating,
		question.CreatedBy, question.LastModifiedBy, question.Version,
		question.CreatedAt, question.UpdatedAt)
	return err
}

const questionColumns = `id, prompt, answers, feedback, difficulty, type, topic,
	points, status, times_answered, correct_answers, average_time_to_answer,
	difficulty_rating, created_by, last_modified_by, version, created_at, updated_at`

func (s *Store) FindQuestionByID(ctx context.Context, id string) (*domain.Question, error) {
	row := s.pool.QueryRow(ctx, `SELECT `+questionColumns+` FROM questions WHERE id=$1`, id)
	return scanQuestion(row)
}

func (s *Store) ListQuestions(ctx context.Context, limit int) ([]domain.Question, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx, `
		SELECT `+questionColumns+` FROM questions ORDER BY created_at ASC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []domain.Question
	for rows.Next() {
		question, err := scanQuestion(rows)
		if err != nil {
			return nil, err
		}
		questions = append(questions, *question)
	}
	return questions, rows.Err()
}

func scanQuestion(row pgx.Row) (*domain.Question, error) {
	var question domain.Question
	var answers, feedback []byte
	err := row.Scan(
		&question.ID, &question.Prompt, &answers, &feedback, &question.Difficulty,
		&question.Type, &question.Topic, &question.Points, &question.Status,
		&question.Stats.TimesAnswered, &question.Stats.CorrectAnswers,
		&question.Stats.AverageTimeToAnswer, &question.Stats.DifficultyRating,
		&question.CreatedBy, &question.LastModifiedBy, &question.Version,
		&question.CreatedAt, &question.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.NotFound("question")
	}
	if err != nil {
		return nil, fmt.Errorf("scan question: %w", err)
	}
	if err := json.Unmarshal(answers, &question.Answers); err != nil {
		return nil, fmt.Errorf("unmarshal answers: %w", err)
	}
	if len(feedback) > 0 {
		if err := json.Unmarshal(feedback, &question.Feedback); err != nil {
			return nil, fmt.Errorf("unmarshal feedback: %w", err)
		}
	}
	return &question, nil
}

func (s *Store) UpdateQuestion(ctx context.Context, question *domain.Question) error {
	answers, feedback, err := marshalQuestionDocs(question)
	if err != nil {
		return err
	}
	tag, err := s.pool.Exec(ctx, `
		UPDATE questions SET prompt=$2, answers=$3, feedback=$4, difficulty=$5,
			type=$6, topic=$7, points=$8, status=$9, last_modified_by=$10,
			version=$11, updated_at=$12
		WHERE id=$1`,
		question.ID, question.Prompt, answers, feedback, question.Difficulty,
		question.Type, question.Topic, question.Points, question.Status,
		question.LastModifiedBy, question.Version, question.UpdatedAt)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("question")
	}
	return nil
}

func (s *Store) DeleteQuestion(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM questions WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("question")
	}
	return nil
}

// RecordSubmission applies the response row plus both counter updates in a
// single transaction. The stat expressions reference the stored values, so
// each UPDATE is atomic on its own even outside the transaction.
func (s *Store) RecordSubmission(ctx context.Context, update app.SubmissionUpdate) error {
	resp := update.Response
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `
		INSERT INTO user_responses (id, user_id, question_id, selected_answer, correct, time_to_answer, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		resp.ID, resp.UserID, resp.QuestionID, resp.SelectedAnswer, resp.Correct,
		resp.TimeToAnswer, resp.CreatedAt); err != nil {
		return err
	}

	correct := 0
	if resp.Correct {
		correct = 1
	}
	tag, err := tx.Exec(ctx, `
		UPDATE questions SET
			average_time_to_answer = (average_time_to_answer * times_answered + $2) / (times_answered + 1),
			times_answered = times_answered + 1,
			correct_answers = correct_answers + $3,
			updated_at = now()
		WHERE id=$1`, resp.QuestionID, resp.TimeToAnswer, correct)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("question")
	}

	incorrect := 1 - correct
	tag, err = tx.Exec(ctx, `
		UPDATE users SET
			questions_answered = questions_answered + 1,
			questions_correct = questions_correct + $2,
			questions_incorrect = questions_incorrect + $3,
			score = CASE WHEN $4 > 0 THEN COALESCE(score, 0) + $4 ELSE score END,
			updated_at = now()
		WHERE id=$1`, resp.UserID, correct, incorrect, update.Points)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFound("user")
	}

	return tx.Commit(ctx)
}

func marshalQuestionDocs(question *domain.Question) ([]byte, []byte, error) {
	answers, err := json.Marshal(question.Answers)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal answers: %w", err)
	}
	feedback, err := json.Marshal(question.Feedback)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal feedback: %w", err)
	}
	return answers, feedback, nil
}

func isUnique(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}
