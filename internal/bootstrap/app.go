package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"spacebio-rag/internal/ai"
	"spacebio-rag/internal/app"
	"spacebio-rag/internal/cache"
	"spacebio-rag/internal/chunker"
	"spacebio-rag/internal/config"
	"spacebio-rag/internal/index"
	"spacebio-rag/internal/ingest"
	"spacebio-rag/internal/platform/logger"
	mysqlClient "spacebio-rag/internal/platform/mysql"
	rabbitmqClient "spacebio-rag/internal/platform/rabbitmq"
	redisClient "spacebio-rag/internal/platform/redis"
	"spacebio-rag/internal/repository"
	"spacebio-rag/internal/retrieval"
	"spacebio-rag/internal/worker"
)

// App holds the long-lived server dependencies. MySQL, Redis and MQConn are
// nil when disabled in config.
type App struct {
	Config *config.Config
	Logger *logger.Logger
	MySQL  *gorm.DB
	Redis  *redis.Client
	MQConn *amqp.Connection
	Holder *index.Holder

	AuthService    *app.AuthService
	RAGService     *app.RAGService
	LibraryService *app.LibraryService
	IndexService   *app.IndexService
	RebuildWorker  *worker.RebuildWorker

	StartedAt time.Time
}

func New(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: log, StartedAt: time.Now()}
	ok := false
	defer func() {
		if !ok {
			_ = a.Close()
		}
	}()

	runRepo, err := a.openMySQL(ctx)
	if err != nil {
		return nil, err
	}

	if cfg.Redis.Enabled {
		a.Redis, err = redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return nil, err
		}
	}

	if cfg.RabbitMQ.Enabled {
		a.MQConn, err = rabbitmqClient.New(ctx, cfg.RabbitMQ.URL, cfg.RabbitMQ.RebuildQueue)
		if err != nil {
			return nil, err
		}
	}

	llm := NewLLMClient(cfg)
	var embedder ai.Embedder = llm
	if a.Redis != nil {
		ttl := time.Duration(cfg.Redis.EmbeddingTTLSeconds) * time.Second
		embedder = ai.NewCachedEmbedder(llm, cache.NewEmbeddingCache(a.Redis, ttl), llm.EmbeddingModel(), log)
	}

	store := index.NewStore(cfg.Index.Dir, log)
	snap, err := store.Load(cfg.LoadIndex())
	if err != nil {
		return nil, fmt.Errorf("load index failed: %w", err)
	}
	a.Holder = index.NewHolder(snap)

	retriever := retrieval.NewRetriever(a.Holder, embedder, retrieval.Options{
		MinCandidates:       cfg.Retrieval.MinCandidates,
		CandidateMultiplier: cfg.Retrieval.CandidateMultiplier,
		DefaultTopK:         cfg.Retrieval.DefaultTopK,
		Scorer:              retrieval.FacetBonus(float32(cfg.Retrieval.FacetBonus)),
	})

	a.AuthService, err = app.NewAuthService(
		cfg.Auth.AppPassword,
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.JWTExpireMinute)*time.Minute,
	)
	if err != nil {
		return nil, err
	}
	if !a.AuthService.Enabled() {
		log.Warn("app_password is empty, authentication disabled")
	}

	a.RAGService = app.NewRAGService(retriever, llm)
	a.LibraryService = app.NewLibraryService(a.Holder)

	var runs app.RunStore
	var recorder ingest.RunRecorder
	if runRepo != nil {
		runs, recorder = runRepo, runRepo
	}
	var publisher app.RebuildPublisher
	if a.MQConn != nil {
		publisher = rabbitmqClient.NewRebuildPublisher(a.MQConn, cfg.RabbitMQ.RebuildQueue)
	}
	a.IndexService = app.NewIndexService(store, a.Holder, cfg.LoadIndex(), runs, publisher, log)

	if a.MQConn != nil {
		pipeline, err := NewPipeline(cfg, embedder, store, recorder, log)
		if err != nil {
			return nil, err
		}
		a.RebuildWorker = worker.NewRebuildWorker(a.MQConn, pipeline, a.IndexService, cfg.RabbitMQ.RebuildQueue, log)
		if err := a.RebuildWorker.Start(ctx); err != nil {
			return nil, fmt.Errorf("start rebuild worker failed: %w", err)
		}
	}

	ok = true
	return a, nil
}

// NewLLMClient builds the embedding and chat client from config.
func NewLLMClient(cfg *config.Config) *ai.OpenAICompatibleClient {
	return ai.NewOpenAICompatibleClient(ai.Config{
		BaseURL:        cfg.LLM.BaseURL,
		APIKey:         cfg.LLM.APIKey,
		ChatModel:      cfg.LLM.ChatModel,
		EmbeddingModel: cfg.LLM.EmbeddingModel,
		EmbedBatchSize: cfg.LLM.EmbedBatchSize,
		Temperature:    float32(cfg.LLM.Temperature),
		Timeout:        time.Duration(cfg.LLM.TimeoutSeconds) * time.Second,
	})
}

// NewPipeline wires the offline build over cfg.Index.PDFDir. runs may be nil.
func NewPipeline(
	cfg *config.Config,
	embedder ai.Embedder,
	store *index.Store,
	runs ingest.RunRecorder,
	log *logger.Logger,
) (*ingest.Pipeline, error) {
	tokens, err := chunker.NewTiktoken(cfg.Chunker.Encoding)
	if err != nil {
		return nil, err
	}
	return ingest.NewPipeline(
		ingest.NewPDFDirSource(cfg.Index.PDFDir, cfg.Ingest.ExtractConcurrency, log),
		chunker.New(tokens, cfg.Chunker.MaxTokens, cfg.Chunker.OverlapTokens),
		embedder,
		store,
		runs,
		log,
	), nil
}

// OpenRunRepository connects MySQL and migrates the ingest-run table. It
// returns nil, nil when MySQL is disabled.
func OpenRunRepository(ctx context.Context, cfg *config.Config) (*gorm.DB, *repository.IngestRunRepository, error) {
	if !cfg.MySQL.Enabled {
		return nil, nil, nil
	}
	db, err := mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, nil, err
	}
	repo := repository.NewIngestRunRepository(db)
	if err := repo.AutoMigrate(); err != nil {
		if sqlDB, derr := db.DB(); derr == nil {
			_ = sqlDB.Close()
		}
		return nil, nil, err
	}
	return db, repo, nil
}

func (a *App) openMySQL(ctx context.Context) (*repository.IngestRunRepository, error) {
	db, repo, err := OpenRunRepository(ctx, a.Config)
	if err != nil {
		return nil, err
	}
	a.MySQL = db
	return repo, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.RebuildWorker != nil {
		a.RebuildWorker.Close()
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
