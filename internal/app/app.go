// Package app wires configuration, storage, the event publisher and the HTTP
// handler together. Both the Lambda entry point and the local server use it.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"dms-comments/handler"
	"dms-comments/internal/config"
	"dms-comments/internal/integrations/eventbus"
	"dms-comments/internal/integrations/paramstore"
	"dms-comments/internal/repository"
	"dms-comments/internal/repository/sqlite"
	"dms-comments/internal/usecase"
)

// App owns the process-wide clients built at start-up.
type App struct {
	Handler *handler.Handler

	db *sql.DB
}

// New builds every collaborator named by cfg. AWS configuration is loaded
// only when a component needs it.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{}
	var awsCfg *aws.Config
	loadAWS := func() (aws.Config, error) {
		if awsCfg != nil {
			return *awsCfg, nil
		}
		c, err := awsconfig.LoadDefaultConfig(ctx)
		if err != nil {
			return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
		}
		awsCfg = &c
		return c, nil
	}

	store, err := a.newStore(ctx, cfg, loadAWS)
	if err != nil {
		a.Close()
		return nil, err
	}

	busName := cfg.EventBusName
	if paramstore.IsReference(busName) {
		c, err := loadAWS()
		if err != nil {
			a.Close()
			return nil, err
		}
		params, err := paramstore.New(awsssm.NewFromConfig(c))
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to create SSM client: %w", err)
		}
		busName, err = params.Resolve(ctx, busName)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to resolve event bus name: %w", err)
		}
	}

	var publisher usecase.EventPublisher = eventbus.LogPublisher{}
	if cfg.EventPublisher == config.PublisherEventBridge {
		c, err := loadAWS()
		if err != nil {
			a.Close()
			return nil, err
		}
		publisher, err = eventbus.New(awseventbridge.NewFromConfig(c))
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("failed to create EventBridge client: %w", err)
		}
	}

	svc, err := usecase.NewCommentService(store, publisher, busName, cfg.EventSource, cfg.MaxCommentLength)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create comment service: %w", err)
	}

	a.Handler, err = handler.NewHandler(svc, cfg.RequestTimeout)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create handler: %w", err)
	}

	slog.InfoContext(ctx, "comment service ready",
		"store", cfg.StoreBackend,
		"publisher", cfg.EventPublisher,
		"event_bus", busName,
	)
	return a, nil
}

func (a *App) newStore(ctx context.Context, cfg *config.Config, loadAWS func() (aws.Config, error)) (usecase.CommentStore, error) {
	if cfg.StoreBackend == config.StoreSQLite {
		db, err := sqlite.NewDB(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		a.db = db
		if err := sqlite.MigrateUp(ctx, db); err != nil {
			return nil, err
		}
		return sqlite.NewCommentRepository(db)
	}

	c, err := loadAWS()
	if err != nil {
		return nil, err
	}
	store, err := repository.New(awsdynamodb.NewFromConfig(c), cfg.TableName)
	if err != nil {
		return nil, fmt.Errorf("failed to create comment store: %w", err)
	}
	return store, nil
}

// Close releases the sqlite connection, if one was opened.
func (a *App) Close() {
	if a.db == nil {
		return
	}
	if err := a.db.Close(); err != nil {
		slog.Error("failed to close database", "err", err)
	}
	a.db = nil
}
