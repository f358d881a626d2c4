package cli

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"

	"quizhub-api/internal/config"
	"quizhub-api/internal/domain"
	"quizhub-api/internal/infra/postgres"
	"quizhub-api/internal/logging"
)

// NewSeedCmd inserts a SUPER_ADMIN account and a handful of sample
// questions so a fresh deployment has something to serve.
func NewSeedCmd(configPath *string) *cobra.Command {
	var adminEmail, adminPassword string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Seed the database with an admin user and sample questions",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSeed(cmd.Context(), *configPath, adminEmail, adminPassword)
		},
	}
	cmd.Flags().StringVar(&adminEmail, "admin-email", "admin@quizhub.local", "email for the seeded SUPER_ADMIN")
	cmd.Flags().StringVar(&adminPassword, "admin-password", "", "password for the seeded SUPER_ADMIN (required)")
	_ = cmd.MarkFlagRequired("admin-password")
	return cmd
}

func runSeed(ctx context.Context, configPath, adminEmail, adminPassword string) error {
	log := logging.New("quizhub-seed")

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if err := runMigrationsWithConfig(ctx, cfg); err != nil {
		return err
	}

	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer pool.Close()
	store := postgres.NewStore(pool)

	hash, err := bcrypt.GenerateFromPassword([]byte(adminPassword), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	now := time.Now()
	admin := &domain.User{
		ID:           uuid.NewString(),
		Username:     "superadmin",
		Email:        adminEmail,
		PasswordHash: string(hash),
		Role:         domain.RoleSuperAdmin,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := store.InsertUser(ctx, admin); err != nil {
		if domain.KindOf(err) == domain.KindUserInput {
			log.Info("admin user already seeded")
		} else {
			return err
		}
	}

	for _, question := range sampleQuestions(admin.ID, now) {
		q := question
		if err := store.InsertQuestion(ctx, &q); err != nil {
			return err
		}
	}
	log.Info("seed complete")
	return nil
}

func sampleQuestions(createdBy string, now time.Time) []domain.Question {
	return []domain.Question{
		{
			ID:     uuid.NewString(),
			Prompt: "What is the capital of France?",
			Answers: []domain.AnswerOption{
				{Text: "Paris", Correct: true, Explanation: "Paris has been the capital since 987."},
				{Text: "Lyon"},
				{Text: "Marseille"},
			},
			Feedback:       domain.Feedback{Correct: "Nice one!", Incorrect: "Not quite - it's Paris."},
			Difficulty:     "easy",
			Type:           "multiple-choice",
			Topic:          "geography",
			Points:         1,
			Status:         "active",
			CreatedBy:      createdBy,
			LastModifiedBy: createdBy,
			Version:        1,
			CreatedAt:      now,
			UpdatedAt:      now,
		},
		{
			ID:     uuid.NewString(),
			Prompt: "Which planet has the most moons?",
			Answers: []domain.AnswerOption{
				{Text: "Jupiter"},
				{Text: "Saturn", Correct: true, Explanation: "Saturn passed Jupiter after new moon discoveries in 2023."},
				{Text: "Neptune"},
			},
			Feedback:       domain.Feedback{Correct: "Correct!", Incorrect: "It's Saturn."},
			Difficulty:     "medium",
			Type:           "multiple-choice",
			Topic:          "astronomy",
			Points:         2,
			Status:         "active",
			CreatedBy:      createdBy,
			LastModifiedBy: createdBy,
			Version:        1,
			CreatedAt:      now,
			UpdatedAt:      now,
		},
	}
}
