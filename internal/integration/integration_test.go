package integration

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v4/pgxpool"
	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"
	"github.com/uptrace/bun/driver/pgdriver"
	"github.com/uptrace/bun/migrate"

	"quizhub-api/internal/app"
	"quizhub-api/internal/domain"
	"quizhub-api/internal/infra/postgres"
	"quizhub-api/internal/infra/postgres/migrations"
	infraredis "quizhub-api/internal/infra/redis"
	"quizhub-api/internal/logging"
)

func TestSubmitAnswerEndToEnd(t *testing.T) {
	ctx := context.Background()
	requireDocker(t)

	pgURL, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisURL, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	migrateDB(t, ctx, pgURL)

	pool, err := pgxpool.Connect(ctx, pgURL)
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	defer pool.Close()
	store := postgres.NewStore(pool)

	redisClient, err := redisClientFromURL(redisURL)
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	cache := infraredis.NewLeaderboardCache(redisClient, store, 5*time.Minute)

	scoring := app.NewScoringService(store, store, nil, nil)
	leaderboard := app.NewLeaderboardService(cache, logging.Discard())
	questions := app.NewQuestionService(store, nil)

	editor := domain.Identity{ID: "editor-1", Role: domain.RoleEditor}
	question, err := questions.Create(ctx, editor, app.QuestionInput{
		Prompt: "What is 2 + 2?",
		Answers: []domain.AnswerOption{
			{Text: "3"},
			{Text: "4", Correct: true},
			{Text: "5"},
		},
		Feedback: domain.Feedback{Correct: "well done", Incorrect: "try again"},
		Points:   4,
	})
	if err != nil {
		t.Fatalf("create question: %v", err)
	}

	alice := seedUser(t, ctx, store, "alice")
	bob := seedUser(t, ctx, store, "bob")

	submit := func(user *domain.User, answer string) *app.SubmissionResult {
		t.Helper()
		result, err := scoring.SubmitAnswer(ctx, domain.Identity{ID: user.ID, Role: user.Role}, question.ID, answer)
		if err != nil {
			t.Fatalf("submit %s: %v", user.Username, err)
		}
		return result
	}

	if result := submit(alice, "4"); !result.IsCorrect || result.PointsAwarded != 4 {
		t.Fatalf("expected 4 points for alice, got %+v", result)
	}
	if result := submit(bob, "3"); result.IsCorrect || result.PointsAwarded != 0 {
		t.Fatalf("expected miss for bob, got %+v", result)
	}

	got, err := store.FindUserByID(ctx, alice.ID)
	if err != nil {
		t.Fatalf("reload alice: %v", err)
	}
	if got.Score == nil || *got.Score != 4 || got.QuestionsCorrect != 1 {
		t.Fatalf("alice counters not persisted: %+v", got)
	}
	missed, err := store.FindUserByID(ctx, bob.ID)
	if err != nil {
		t.Fatalf("reload bob: %v", err)
	}
	if missed.Score != nil || missed.QuestionsIncorrect != 1 {
		t.Fatalf("bob counters not persisted: %+v", missed)
	}

	q, err := store.FindQuestionByID(ctx, question.ID)
	if err != nil {
		t.Fatalf("reload question: %v", err)
	}
	if q.Stats.TimesAnswered != 2 || q.Stats.CorrectAnswers != 1 {
		t.Fatalf("question stats not persisted: %+v", q.Stats)
	}

	board, err := leaderboard.Leaderboard(ctx, 10, &domain.Identity{ID: alice.ID, Role: domain.RoleUser})
	if err != nil {
		t.Fatalf("leaderboard: %v", err)
	}
	if len(board.Entries) != 1 {
		t.Fatalf("unranked bob must stay off the board: %+v", board.Entries)
	}
	if board.Entries[0].User.Username != "alice" || board.Entries[0].User.Email != "a***e@example.com" {
		t.Fatalf("unexpected top entry: %+v", board.Entries[0])
	}
	if board.CurrentUserEntry == nil || board.CurrentUserEntry.Position != 1 {
		t.Fatalf("missing current user entry: %+v", board.CurrentUserEntry)
	}

	// Second read must come out of the Redis snapshot.
	if _, err := leaderboard.Leaderboard(ctx, 10, nil); err != nil {
		t.Fatalf("cached leaderboard: %v", err)
	}
}

func seedUser(t *testing.T, ctx context.Context, store *postgres.Store, username string) *domain.User {
	t.Helper()
	user := &domain.User{
		ID:        username + "-id",
		Username:  username,
		Email:     username + "@example.com",
		Role:      domain.RoleUser,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}
	if err := store.InsertUser(ctx, user); err != nil {
		t.Fatalf("seed %s: %v", username, err)
	}
	return user
}

func migrateDB(t *testing.T, ctx context.Context, dsn string) {
	t.Helper()
	sqldb := sql.OpenDB(pgdriver.NewConnector(pgdriver.WithDSN(dsn)))
	db := bun.NewDB(sqldb, pgdialect.New())
	defer db.Close()

	migrator := migrate.NewMigrator(db, migrations.Migrations)
	if err := migrator.Init(ctx); err != nil {
		t.Fatalf("migrator init: %v", err)
	}
	if _, err := migrator.Migrate(ctx); err != nil {
		t.Fatalf("migrate: %v", err)
	}
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "quizhub", "POSTGRES_PASSWORD": "quizhubpass", "POSTGRES_DB": "quizhub"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForListeningPort("5432/tcp").WithStartupTimeout(60 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start postgres: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://quizhub:quizhubpass@%s:%s/quizhub?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	req := tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	}
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start redis: %v", err)
	}
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	url := fmt.Sprintf("redis://%s:%s", host, port.Port())
	return url, func() {
		_ = container.Terminate(ctx)
	}
}

func redisClientFromURL(url string) (*goredis.Client, error) {
	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return goredis.NewClient(&goredis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	}), nil
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}
