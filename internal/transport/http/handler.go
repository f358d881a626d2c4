package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"quizhub-api/internal/app"
	"quizhub-api/internal/auth"
	"quizhub-api/internal/domain"
)

// Handler exposes the service layer as a JSON API. The GraphQL schema layer
// sits in front of this in the larger deployment; these routes are the
// request-context surface the auth gate reads from.
type Handler struct {
	gate        *auth.Gate
	users       *app.UserService
	questions   *app.QuestionService
	scoring     *app.ScoringService
	streak      *app.StreakService
	leaderboard *app.LeaderboardService
	stats       *app.StatsService
	log         *logrus.Entry
}

func NewHandler(
	gate *auth.Gate,
	users *app.UserService,
	questions *app.QuestionService,
	scoring *app.ScoringService,
	streak *app.StreakService,
	leaderboard *app.LeaderboardService,
	stats *app.StatsService,
	log *logrus.Entry,
) *Handler {
	return &Handler{
		gate:        gate,
		users:       users,
		questions:   questions,
		scoring:     scoring,
		streak:      streak,
		leaderboard: leaderboard,
		stats:       stats,
		log:         log,
	}
}

// Register wires the routes onto mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /register", h.handleRegister)
	mux.HandleFunc("POST /login", h.handleLogin)
	mux.HandleFunc("GET /me", h.handleMe)
	mux.HandleFunc("GET /leaderboard", h.handleLeaderboard)

	mux.HandleFunc("GET /questions", h.handleListQuestions)
	mux.HandleFunc("POST /questions", h.handleCreateQuestion)
	mux.HandleFunc("GET /questions/{id}", h.handleGetQuestion)
	mux.HandleFunc("PUT /questions/{id}", h.handleUpdateQuestion)
	mux.HandleFunc("DELETE /questions/{id}", h.handleDeleteQuestion)
	mux.HandleFunc("POST /questions/{id}/answer", h.handleSubmitAnswer)

	mux.HandleFunc("POST /users/{id}/streak", h.handleRecordLogin)
	mux.HandleFunc("POST /users/{id}/stats", h.handleApplyStats)
	mux.HandleFunc("POST /users/{id}/role", h.handleChangeRole)
	mux.HandleFunc("POST /users/{id}/badges", h.handleAwardBadge)
	mux.HandleFunc("DELETE /users/{id}", h.handleDeleteUser)
}

func (h *Handler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var input app.RegisterInput
	if !h.decode(w, r, &input) {
		return
	}
	user, err := h.users.Register(r.Context(), input)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, userView(user))
}

func (h *Handler) handleLogin(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if !h.decode(w, r, &input) {
		return
	}
	user, token, err := h.users.Login(r.Context(), input.Email, input.Password)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"user":  userView(user),
	})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	identity, err := h.gate.Authenticate(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	user, err := h.users.Me(r.Context(), identity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, userView(user))
}

func (h *Handler) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	// A failed authentication only drops the caller's own entry; the
	// public page is still served.
	var identity *domain.Identity
	if resolved, err := h.gate.Authenticate(r); err == nil {
		identity = &resolved
	}

	board, err := h.leaderboard.Leaderboard(r.Context(), limit, identity)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, board)
}

func (h *Handler) handleListQuestions(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	questions, err := h.questions.List(r.Context(), limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, questions)
}

func (h *Handler) handleGetQuestion(w http.ResponseWriter, r *http.Request) {
	question, err := h.questions.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, question)
}

func (h *Handler) handleCreateQuestion(w http.ResponseWriter, r *http.Request) {
	identity, err := h.gate.Authenticate(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	var input app.QuestionInput
	if !h.decode(w, r, &input) {
		return
	}
	question, err := h.questions.Create(r.Context(), identity, input)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, question)
}

func (h *Handler) handleUpdateQuestion(w http.ResponseWriter, r *http.Request) {
	identity, err := h.gate.Authenticate(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	var input app.QuestionInput
	if !h.decode(w, r, &input) {
		return
	}
	question, err := h.questions.Update(r.Context(), identity, r.PathValue("id"), input)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, question)
}

func (h *Handler) handleDeleteQuestion(w http.ResponseWriter, r *http.Request) {
	identity, err := h.gate.Authenticate(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.questions.Delete(r.Context(), identity, r.PathValue("id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleSubmitAnswer(w http.ResponseWriter, r *http.Request) {
	identity, err := h.gate.Authenticate(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	var input struct {
		SelectedAnswer string `json:"selectedAnswer"`
	}
	if !h.decode(w, r, &input) {
		return
	}
	result, err := h.scoring.SubmitAnswer(r.Context(), identity, r.PathValue("id"), input.SelectedAnswer)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) handleRecordLogin(w http.ResponseWriter, r *http.Request) {
	identity, err := h.gate.Authenticate(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	user, err := h.streak.RecordLogin(r.Context(), identity, r.PathValue("id"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, userView(user))
}

func (h *Handler) handleApplyStats(w http.ResponseWriter, r *http.Request) {
	identity, err := h.gate.Authenticate(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	var delta app.StatsDelta
	if !h.decode(w, r, &delta) {
		return
	}
	user, err := h.stats.ApplyStats(r.Context(), identity, r.PathValue("id"), delta)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, userView(user))
}

func (h *Handler) handleChangeRole(w http.ResponseWriter, r *http.Request) {
	identity, err := h.gate.Authenticate(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	var input struct {
		Role domain.Role `json:"role"`
	}
	if !h.decode(w, r, &input) {
		return
	}
	user, err := h.users.ChangeRole(r.Context(), identity, r.PathValue("id"), input.Role)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, userView(user))
}

func (h *Handler) handleAwardBadge(w http.ResponseWriter, r *http.Request) {
	identity, err := h.gate.Authenticate(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	var input app.BadgeInput
	if !h.decode(w, r, &input) {
		return
	}
	user, err := h.users.AwardBadge(r.Context(), identity, r.PathValue("id"), input)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, userView(user))
}

func (h *Handler) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	identity, err := h.gate.Authenticate(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.users.DeleteUser(r.Context(), identity, r.PathValue("id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		h.writeError(w, domain.UserInput("invalid request body"))
		return false
	}
	return true
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.WithError(err).Error("write response failed")
	}
}

// writeError translates classified errors into status codes. Only the kind
// and the caller-safe message leave the process.
func (h *Handler) writeError(w http.ResponseWriter, err error) {
	kind := domain.KindOf(err)
	status := http.StatusInternalServerError
	message := "internal error"
	switch kind {
	case domain.KindUnauthenticated:
		status = http.StatusUnauthorized
	case domain.KindForbidden:
		status = http.StatusForbidden
	case domain.KindUserInput, domain.KindValidation:
		status = http.StatusBadRequest
	case domain.KindNotFound:
		status = http.StatusNotFound
	}
	var derr *domain.Error
	if errors.As(err, &derr) {
		message = derr.Message
	}
	if kind == domain.KindInternal {
		h.log.WithError(err).Error("request failed")
	}
	h.writeJSON(w, status, map[string]any{
		"error": map[string]string{
			"code":    string(kind),
			"message": message,
		},
	})
}

// userView strips the password hash from API responses.
type userJSON struct {
	ID                   string         `json:"id"`
	Username             string         `json:"username"`
	Email                string         `json:"email"`
	Role                 domain.Role    `json:"role"`
	Score                *int           `json:"score"`
	QuestionsAnswered    int            `json:"questionsAnswered"`
	QuestionsCorrect     int            `json:"questionsCorrect"`
	QuestionsIncorrect   int            `json:"questionsIncorrect"`
	LifetimePoints       int            `json:"lifetimePoints"`
	YearlyPoints         int            `json:"yearlyPoints"`
	MonthlyPoints        int            `json:"monthlyPoints"`
	DailyPoints          int            `json:"dailyPoints"`
	ConsecutiveLoginDays int            `json:"consecutiveLoginDays"`
	LastLoginDate        *string        `json:"lastLoginDate"`
	Badges               []domain.Badge `json:"badges"`
}

func userView(user *domain.User) userJSON {
	view := userJSON{
		ID:                   user.ID,
		Username:             user.Username,
		Email:                user.Email,
		Role:                 user.Role,
		Score:                user.Score,
		QuestionsAnswered:    user.QuestionsAnswered,
		QuestionsCorrect:     user.QuestionsCorrect,
		QuestionsIncorrect:   user.QuestionsIncorrect,
		LifetimePoints:       user.LifetimePoints,
		YearlyPoints:         user.YearlyPoints,
		MonthlyPoints:        user.MonthlyPoints,
		DailyPoints:          user.DailyPoints,
		ConsecutiveLoginDays: user.ConsecutiveLoginDays,
		Badges:               user.Badges,
	}
	if user.LastLoginDate != nil {
		formatted := user.LastLoginDate.UTC().Format(time.RFC3339)
		view.LastLoginDate = &formatted
	}
	return view
}
