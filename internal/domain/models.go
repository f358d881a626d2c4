package domain

import "time"

// Role is the single role assigned to a user. Permission checks use exact
// set membership; there is no implied hierarchy between roles.
type Role string

const (
	RoleSuperAdmin Role = "SUPER_ADMIN"
	RoleAdmin      Role = "ADMIN"
	RoleEditor     Role = "EDITOR"
	RoleUser       Role = "USER"
)

// ValidRole reports whether r is one of the four known roles.
func ValidRole(r Role) bool {
	switch r {
	case RoleSuperAdmin, RoleAdmin, RoleEditor, RoleUser:
		return true
	}
	return false
}

// Badge is an achievement embedded in a user record. Badges are append-only.
type Badge struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Image       string    `json:"image"`
	EarnedAt    time.Time `json:"earnedAt"`
}

// User is the persistent account record.
type User struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         Role

	// Score is nil until the user earns points; nil means "not ranked".
	Score *int

	QuestionsAnswered  int
	QuestionsCorrect   int
	QuestionsIncorrect int

	LifetimePoints int
	YearlyPoints   int
	MonthlyPoints  int
	DailyPoints    int

	ConsecutiveLoginDays int
	LastLoginDate        *time.Time

	Badges []Badge

	CreatedAt time.Time
	UpdatedAt time.Time
}

// HasBadge reports whether the user already earned a badge with the given name.
func (u *User) HasBadge(name string) bool {
	for _, b := range u.Badges {
		if b.Name == name {
			return true
		}
	}
	return false
}

// AnswerOption is one selectable answer of a question.
type AnswerOption struct {
	Text        string `json:"text"`
	Correct     bool   `json:"correct"`
	Explanation string `json:"explanation,omitempty"`
}

// Feedback holds the per-question response strings shown after a submission.
type Feedback struct {
	Correct   string `json:"correct"`
	Incorrect string `json:"incorrect"`
}

// QuestionStats is the running statistics sub-record of a question.
type QuestionStats struct {
	TimesAnswered       int     `json:"timesAnswered"`
	CorrectAnswers      int     `json:"correctAnswers"`
	AverageTimeToAnswer float64 `json:"averageTimeToAnswer"`
	DifficultyRating    float64 `json:"difficultyRating"`
}

// Question is a quiz question with its answer options and authorship metadata.
type Question struct {
	ID         string         `json:"id"`
	Prompt     string         `json:"prompt"`
	Answers    []AnswerOption `json:"answers"`
	Feedback   Feedback       `json:"feedback"`
	Difficulty string         `json:"difficulty"`
	Type       string         `json:"type"`
	Topic      string         `json:"topic"`
	Points     int            `json:"points"` // defaults to 1 if zero
	Stats      QuestionStats  `json:"stats"`
	Status     string         `json:"status"`

	CreatedBy      string `json:"createdBy"`
	LastModifiedBy string `json:"lastModifiedBy"`
	Version        int    `json:"version"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// PointValue returns the points awarded for a correct answer.
func (q *Question) PointValue() int {
	if q.Points > 0 {
		return q.Points
	}
	return 1
}

// FindAnswer locates the option whose text exactly equals selected.
func (q *Question) FindAnswer(selected string) (AnswerOption, bool) {
	for _, a := range q.Answers {
		if a.Text == selected {
			return a, true
		}
	}
	return AnswerOption{}, false
}

// UserResponse is the immutable audit record of one answer submission.
// Rows are never updated or deleted; retries create duplicate rows.
type UserResponse struct {
	ID             string
	UserID         string
	QuestionID     string
	SelectedAnswer string
	Correct        bool
	TimeToAnswer   float64 // seconds
	CreatedAt      time.Time
}

// Identity is the verified, transient credential decoded from a token.
type Identity struct {
	ID    string
	Email string
	Role  Role
}

// RankedUser is the public projection of one leaderboard row.
type RankedUser struct {
	ID       string `json:"id"`
	Email    string `json:"email"` // masked for presentation
	Username string `json:"username"`
	Score    int    `json:"score"`
}

// LeaderboardEntry pairs a ranked user with its dense 1-based position.
type LeaderboardEntry struct {
	Position int        `json:"position"`
	User     RankedUser `json:"user"`
}

// Leaderboard is the derived ranking snapshot returned to callers.
type Leaderboard struct {
	Entries          []LeaderboardEntry `json:"leaderboard"`
	CurrentUserEntry *LeaderboardEntry  `json:"currentUserEntry"`
}

// ExternalIdentity is the tuple an external identity provider resolves to.
// The OAuth exchange itself happens outside this service.
type ExternalIdentity struct {
	ExternalID  string
	Email       string
	DisplayName string
}
