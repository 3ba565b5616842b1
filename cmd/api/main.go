package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/config"
	cacheadapter "github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/infrastructure/cache/adapter"
	"github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/infrastructure/database"
	"github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/infrastructure/gcal"
	llmadapter "github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/infrastructure/llm/adapter"
	"github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/infrastructure/messaging"
	queueadapter "github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/infrastructure/queue/adapter"
	"github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/lib/sl"
	"github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/pkg/assistant/application/task"
	"github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/pkg/assistant/application/usecase"
	stateadapter "github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/pkg/assistant/persistence/repository/adapter"
	"github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/pkg/assistant/presentation/controller"
	router "github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/pkg/assistant/presentation/http"
	"github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/pkg/calendar"
	"github.com/ioanniskarvelis/AI-Instagram-Assistant/internal/pkg/retrieval"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("configuration failed", sl.Err(err))
		os.Exit(1)
	}

	level := slog.LevelInfo
	if cfg.Debug {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cache, err := cacheadapter.NewRedisAdapter()
	if err != nil {
		log.Error("redis connection failed", sl.Err(err))
		os.Exit(1)
	}
	defer cache.Close()

	queueClient, err := queueadapter.NewAsynqClientFromEnv()
	if err != nil {
		log.Error("queue client failed", sl.Err(err))
		os.Exit(1)
	}
	defer queueClient.Close()

	queueServer, err := queueadapter.NewAsynqServer()
	if err != nil {
		log.Error("queue server failed", sl.Err(err))
		os.Exit(1)
	}

	states := stateadapter.NewRedisStateRepository(cache, cfg, log)
	llm := llmadapter.NewOpenAIClient(cfg.OpenAI.APIKey)
	log.Debug("instagram credentials loaded", sl.Secret(cfg.Instagram.AccessToken))

	backend, err := gcal.New(ctx, cfg.Calendar.CredentialsPath, cfg.Calendar.TokenPath, cfg.Calendar.CalendarID, cfg.Calendar.Timezone)
	if err != nil {
		log.Error("calendar backend failed", sl.Err(err))
		os.Exit(1)
	}
	scheduler, err := calendar.NewScheduler(backend, states, cfg, log)
	if err != nil {
		log.Error("scheduler failed", sl.Err(err))
		os.Exit(1)
	}
	tools := calendar.NewTools(scheduler, cfg.Calendar.SuggestedSlots)

	// The example database is optional; without DB_URL replies simply run
	// without retrieved examples.
	var examples retrieval.ExampleSource = retrieval.NoopSource{}
	if os.Getenv("DB_URL") != "" {
		pool, err := database.NewPoolFromEnv(ctx)
		if err != nil {
			log.Error("postgres connection failed", sl.Err(err))
			os.Exit(1)
		}
		defer pool.Close()
		examples = retrieval.NewRetriever(
			retrieval.NewPgExampleRepository(pool),
			embedderFunc(func(c context.Context, text string) ([]float32, error) {
				return llm.Embed(c, cfg.OpenAI.ModelEmbedding, text)
			}),
			cfg.Retrieval.SimilarityThreshold, cfg.Retrieval.TopK, log)
	}

	sender := messaging.NewSender(cfg.Instagram.AccessToken, cfg.Conversation.MaxMsgLength, log)

	generate := usecase.NewGenerateReplyUseCase(states, llm, tools, examples, cfg, log)
	processBatch := usecase.NewProcessBatchUseCase(states, queueClient, generate, sender, cfg, log)
	analyzeImage := usecase.NewAnalyzeImageUseCase(states, llm, sender, cfg, log)
	schedule := usecase.NewScheduleProcessingUseCase(states, queueClient, cfg, log)
	enqueue := usecase.NewEnqueueMessageUseCase(states, schedule, log)
	mute := usecase.NewMuteUserUseCase(states, cfg, log)
	ingest := usecase.NewIngestEventUseCase(enqueue, mute, queueClient, states, cfg, log)

	task.RegisterProcessBatchTask(queueServer, processBatch)
	task.RegisterAnalyzeImageTask(queueServer, analyzeImage)

	go func() {
		if err := queueServer.Run(ctx); err != nil {
			log.Error("queue server stopped", sl.Err(err))
			stop()
		}
	}()

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.Default()
	router.RegisterRoutes(engine,
		controller.NewWebhookController(ingest, log),
		controller.NewVerifyController(),
		controller.NewHealthController(cache),
	)

	srv := &http.Server{Addr: ":" + cfg.Port, Handler: engine}
	go func() {
		log.Info("listening", slog.String("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("http server stopped", sl.Err(err))
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("http shutdown failed", sl.Err(err))
	}
	if err := queueServer.Stop(shutdownCtx); err != nil {
		log.Error("queue shutdown failed", sl.Err(err))
	}
}

type embedderFunc func(ctx context.Context, text string) ([]float32, error)

func (f embedderFunc) Embed(ctx context.Context, text string) ([]float32, error) {
	return f(ctx, text)
}
