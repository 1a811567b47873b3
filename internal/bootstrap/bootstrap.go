package bootstrap

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/kirillkom/document-intake/internal/config"
	"github.com/kirillkom/document-intake/internal/core/classify"
	"github.com/kirillkom/document-intake/internal/core/extract"
	"github.com/kirillkom/document-intake/internal/core/ports"
	"github.com/kirillkom/document-intake/internal/core/usecase"
	"github.com/kirillkom/document-intake/internal/infrastructure/analyzer/azure"
	"github.com/kirillkom/document-intake/internal/infrastructure/analyzer/localtext"
	"github.com/kirillkom/document-intake/internal/infrastructure/export/xlsx"
	"github.com/kirillkom/document-intake/internal/infrastructure/queue/inline"
	"github.com/kirillkom/document-intake/internal/infrastructure/queue/nats"
	"github.com/kirillkom/document-intake/internal/infrastructure/repository/postgres"
	"github.com/kirillkom/document-intake/internal/infrastructure/repository/sqlite"
	"github.com/kirillkom/document-intake/internal/infrastructure/resilience"
	"github.com/kirillkom/document-intake/internal/infrastructure/storage/localfs"
)

type Options struct {
	Logger *slog.Logger
	// OnDelivery observes publish-to-delivery lag; only the NATS queue reports it.
	OnDelivery func(lag time.Duration)
}

type App struct {
	Config config.Config
	Logger *slog.Logger

	Queue      ports.MessageQueue
	Repo       ports.DocumentRepository
	Classifier ports.DocumentClassifier
	Extractor  ports.FieldExtractor

	SubmitUC  *usecase.SubmitBatchUseCase
	ProcessUC *usecase.ProcessDocumentUseCase
	ReviewUC  *usecase.ReviewUseCase
	EditUC    *usecase.EditFieldUseCase
	ExportUC  *usecase.ExportBatchUseCase

	closeFn func()
}

type documentStore interface {
	ports.DocumentRepository
	EnsureSchema(ctx context.Context) error
}

func New(ctx context.Context, cfg config.Config, opts Options) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	resilienceCfg := resilience.DefaultConfig()
	resilienceCfg.Logger = logger
	executor := resilience.NewExecutor(resilienceCfg)

	db, repo, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	closers := []func(){func() { _ = db.Close() }}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if err := repo.EnsureSchema(ctx); err != nil {
		closeAll()
		return nil, fmt.Errorf("ensure schema: %w", err)
	}

	storage, err := localfs.New(cfg.StoragePath)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("init object storage: %w", err)
	}

	analyzer, err := newAnalyzer(cfg, executor)
	if err != nil {
		closeAll()
		return nil, fmt.Errorf("init ocr analyzer: %w", err)
	}

	classifier := classify.NewClassifier()
	extractor := extract.NewExtractor()
	processUC := usecase.NewProcessDocumentUseCase(repo, storage, analyzer, classifier, extractor)

	var queue ports.MessageQueue
	switch cfg.QueueDriver {
	case config.QueueDriverInline:
		inlineQueue := inline.New(logger)
		processTimeout := cfg.ProcessTimeout
		err := inlineQueue.SubscribeDocumentIngested(ctx, func(handlerCtx context.Context, documentID string) error {
			if processTimeout > 0 {
				var cancel context.CancelFunc
				handlerCtx, cancel = context.WithTimeout(handlerCtx, processTimeout)
				defer cancel()
			}
			return processUC.ProcessByID(handlerCtx, documentID)
		})
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("subscribe inline queue: %w", err)
		}
		queue = inlineQueue
	default:
		natsQueue, err := nats.NewWithOptions(cfg.NATSURL, cfg.NATSSubject, nats.Options{
			HandlerTimeout:     cfg.ProcessTimeout,
			ResilienceExecutor: executor,
			Logger:             logger,
			OnDelivery:         opts.OnDelivery,
		})
		if err != nil {
			closeAll()
			return nil, fmt.Errorf("init message queue: %w", err)
		}
		closers = append(closers, natsQueue.Close)
		queue = natsQueue
	}

	reviewUC := usecase.NewReviewUseCase(repo)
	submitUC := usecase.NewSubmitBatchUseCase(repo, storage, queue, reviewUC, cfg.BatchMaxFiles, cfg.BatchConcurrency)
	editUC := usecase.NewEditFieldUseCase(repo)
	exportUC := usecase.NewExportBatchUseCase(reviewUC, xlsx.NewWriter())

	logger.Info("bootstrap_ready",
		"store_driver", cfg.StoreDriver,
		"queue_driver", cfg.QueueDriver,
		"ocr_provider", cfg.OCRProvider,
	)

	return &App{
		Config: cfg,
		Logger: logger,

		Queue:      queue,
		Repo:       repo,
		Classifier: classifier,
		Extractor:  extractor,

		SubmitUC:  submitUC,
		ProcessUC: processUC,
		ReviewUC:  reviewUC,
		EditUC:    editUC,
		ExportUC:  exportUC,

		closeFn: closeAll,
	}, nil
}

func openStore(cfg config.Config) (*sql.DB, documentStore, error) {
	switch cfg.StoreDriver {
	case config.StoreDriverSQLite:
		db, err := sqlite.OpenDB(cfg.SQLitePath)
		if err != nil {
			return nil, nil, fmt.Errorf("open sqlite: %w", err)
		}
		return db, sqlite.NewDocumentRepository(db), nil
	default:
		db, err := postgres.OpenDB(cfg.PostgresDSN)
		if err != nil {
			return nil, nil, fmt.Errorf("open postgres: %w", err)
		}
		return db, postgres.NewDocumentRepository(db), nil
	}
}

func newAnalyzer(cfg config.Config, executor *resilience.Executor) (ports.TextAnalyzer, error) {
	if cfg.OCRProvider == config.OCRProviderLocal {
		return localtext.New(), nil
	}
	return azure.New(cfg.AzureDIEndpoint, cfg.AzureDIKey, azure.Options{
		ModelID:            cfg.AzureDIModel,
		APIVersion:         cfg.AzureDIAPIVersion,
		PollInterval:       cfg.AzureDIPollInterval,
		Timeout:            cfg.AzureDITimeout,
		ResilienceExecutor: executor,
	})
}

func (a *App) Close() {
	if a.closeFn != nil {
		a.closeFn()
	}
}
