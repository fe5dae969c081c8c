package bootstrap

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"resume-processor/internal/completion"
	"resume-processor/internal/completion/openai"
	"resume-processor/internal/pipeline"
	"resume-processor/internal/queue"
	"resume-processor/internal/resumes"
	"resume-processor/internal/server"
	"resume-processor/internal/shared/config"
	"resume-processor/internal/shared/storage/db"
	"resume-processor/internal/shared/storage/object"
	localstore "resume-processor/internal/shared/storage/object/local"
	s3store "resume-processor/internal/shared/storage/object/s3"
	"resume-processor/internal/shared/telemetry"
	"resume-processor/internal/webhooks"
)

// App holds shared dependencies.
type App struct {
	Config config.Config
	Router *gin.Engine
	DB     *sql.DB
	Store  object.ObjectStore
	Queue  queue.Client

	Repo          resumes.Repo
	ResumeService *resumes.Service
	Pipeline      *pipeline.Service
	Reaper        *pipeline.Reaper

	ResumeHandler  *resumes.Handler
	WebhookHandler *webhooks.Handler
}

// Build prepares shared dependencies and wires routes.
func Build(cfg config.Config) (*App, error) {
	if strings.TrimSpace(cfg.Env) == "" {
		cfg.Env = "dev"
	}
	if strings.TrimSpace(cfg.ObjectStoreType) == "" {
		cfg.ObjectStoreType = "local"
	}
	ctx := context.Background()

	sqlDB, err := buildDB(ctx, cfg)
	if err != nil {
		return nil, err
	}

	store, err := buildStore(ctx, cfg)
	if err != nil {
		return nil, err
	}

	queueClient, err := buildQueue(ctx, cfg)
	if err != nil {
		return nil, err
	}

	app := &App{
		Config: cfg,
		DB:     sqlDB,
		Store:  store,
		Queue:  queueClient,
	}

	if err := buildServices(app); err != nil {
		return nil, err
	}

	app.Router = server.NewRouter(server.RouterDeps{
		Config:         app.Config,
		ResumeHandler:  app.ResumeHandler,
		WebhookHandler: app.WebhookHandler,
	})

	return app, nil
}

func buildDB(ctx context.Context, cfg config.Config) (*sql.DB, error) {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: DATABASE_URL empty; using in-memory repositories")
			return nil, nil
		}
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	opts := db.OptionsFromEnv(db.DefaultServerOptions())
	sqlDB, err := db.Connect(ctx, cfg.DatabaseURL, opts)
	if err != nil {
		if isDevLike(cfg.Env) {
			log.Printf("bootstrap: database connect failed; using in-memory repositories: %v", err)
			return nil, nil
		}
		return nil, err
	}
	return sqlDB, nil
}

func buildStore(ctx context.Context, cfg config.Config) (object.ObjectStore, error) {
	switch cfg.ObjectStoreType {
	case "s3":
		if strings.TrimSpace(cfg.AWSRegion) == "" || strings.TrimSpace(cfg.S3Bucket) == "" {
			return nil, fmt.Errorf("OBJECT_STORE=s3 requires AWS_REGION and S3_BUCKET")
		}
		return s3store.New(ctx, cfg.AWSRegion, cfg.S3Bucket, cfg.S3Prefix)
	default:
		return localstore.New(cfg.LocalStoreDir), nil
	}
}

func buildQueue(ctx context.Context, cfg config.Config) (queue.Client, error) {
	if strings.TrimSpace(cfg.QueueURL) == "" {
		return nil, nil
	}
	return queue.NewSQSClient(ctx)
}

func isDevLike(env string) bool {
	switch strings.ToLower(strings.TrimSpace(env)) {
	case "dev", "local":
		return true
	default:
		return false
	}
}

func buildServices(app *App) error {
	var repo resumes.Repo
	if app.DB != nil {
		repo = &resumes.PGRepo{DB: app.DB}
	} else {
		repo = resumes.NewMemoryRepo()
	}

	client, err := buildCompletionClient(app.Config)
	if err != nil {
		return err
	}

	pipelineSvc, err := pipeline.NewService(
		repo,
		&pipeline.Extractor{Client: client},
		&pipeline.Summarizer{Client: client, MaxWords: app.Config.SummaryMaxWords},
		&pipeline.PIIRemover{Client: client},
	)
	if err != nil {
		return err
	}

	resumeSvc := resumes.NewService(repo, app.Store, buildTrigger(app.Queue, pipelineSvc))

	app.Repo = repo
	app.Pipeline = pipelineSvc
	app.ResumeService = resumeSvc
	app.Reaper = &pipeline.Reaper{
		Repo:      repo,
		Threshold: app.Config.StaleRunThreshold,
		Interval:  app.Config.ReaperInterval,
	}
	app.ResumeHandler = resumes.NewHandler(resumeSvc)
	app.WebhookHandler = webhooks.NewHandler(pipelineSvc)
	return nil
}

func buildCompletionClient(cfg config.Config) (completion.Client, error) {
	base, err := openai.NewClient(openai.Options{
		BaseURL:           cfg.CompletionBaseURL,
		Model:             cfg.CompletionModel,
		APIKey:            cfg.CompletionAPIKey,
		Timeout:           cfg.CompletionTimeout,
		OAuthTokenURL:     cfg.OAuthTokenURL,
		OAuthClientID:     cfg.OAuthClientID,
		OAuthClientSecret: cfg.OAuthClientSecret,
		OAuthScope:        cfg.OAuthScope,
	})
	if err != nil {
		return nil, err
	}
	return completion.WithRetry(base, cfg.CompletionMaxAttempts), nil
}

// buildTrigger returns the run trigger: queue-backed when a queue is
// configured, otherwise an in-process goroutine.
func buildTrigger(q queue.Client, pipelineSvc *pipeline.Service) resumes.ProcessTrigger {
	if q != nil {
		return func(ctx context.Context, raw resumes.RawResume) {
			msg := queue.Message{
				ResumeID:   raw.ID,
				RequestID:  telemetry.RequestIDFromContext(ctx),
				EnqueuedAt: time.Now().UTC().Format(time.RFC3339),
				Version:    raw.Version,
			}
			if err := q.Send(ctx, msg); err != nil {
				telemetry.Error("trigger.enqueue_failed", map[string]any{
					"resume_id":  raw.ID,
					"request_id": msg.RequestID,
					"error":      err.Error(),
				})
			}
		}
	}
	return func(ctx context.Context, raw resumes.RawResume) {
		runCtx := telemetry.BackgroundWithRequestID(ctx)
		go func() {
			if _, err := pipelineSvc.Run(runCtx, raw.ID, raw.Version); err != nil && !errors.Is(err, resumes.ErrClaimConflict) {
				telemetry.Error("trigger.run_failed", map[string]any{
					"resume_id": raw.ID,
					"error":     err.Error(),
				})
			}
		}()
	}
}
