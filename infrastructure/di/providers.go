package di

import (
	"context"
	"fmt"
	"time"

	"atlas-backend/application/commands"
	"atlas-backend/application/commands/bus"
	"atlas-backend/application/ports"
	"atlas-backend/application/queries"
	querybus "atlas-backend/application/queries/bus"
	queries_handlers "atlas-backend/application/queries/handlers"
	"atlas-backend/application/services"
	"atlas-backend/domain/events"
	"atlas-backend/infrastructure/config"
	"atlas-backend/infrastructure/messaging/eventbridge"
	"atlas-backend/infrastructure/notifications"
	"atlas-backend/infrastructure/persistence/dynamodb"
	"atlas-backend/pkg/auth"
	"atlas-backend/pkg/observability"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	var logger *zap.Logger
	var err error

	if cfg.Environment == "production" {
		logger, err = zap.NewProduction()
	} else {
		logger, err = zap.NewDevelopment()
	}

	if err != nil {
		return nil, err
	}

	return logger, nil
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideModelRepository creates a model repository
func ProvideModelRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.ModelRepository {
	return dynamodb.NewModelRepository(
		client,
		cfg.DynamoDBTable,
		logger,
	)
}

// ProvideEventBus creates an event bus
func ProvideEventBus(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) ports.EventBus {
	return eventbridge.NewEventBridgePublisher(
		client,
		cfg.EventBusName,
		logger,
	)
}

// ProvideEventPublisher creates an event publisher (adapter for EventBus)
func ProvideEventPublisher(eventBus ports.EventBus) ports.EventPublisher {
	return &eventPublisherAdapter{eventBus: eventBus}
}

// eventPublisherAdapter adapts EventBus to the EventPublisher interface
type eventPublisherAdapter struct {
	eventBus ports.EventBus
}

func (a *eventPublisherAdapter) Publish(ctx context.Context, event events.DomainEvent) error {
	return a.eventBus.Publish(ctx, event)
}

func (a *eventPublisherAdapter) PublishBatch(ctx context.Context, events []events.DomainEvent) error {
	return a.eventBus.PublishBatch(ctx, events)
}

// ProvideEventStore creates an event store backed by the main table
func ProvideEventStore(client *awsdynamodb.Client, cfg *config.Config) *dynamodb.EventStore {
	return dynamodb.NewEventStore(client, cfg.DynamoDBTable)
}

// ProvideDistributedLock creates a distributed lock instance
func ProvideDistributedLock(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) *dynamodb.DistributedLock {
	return dynamodb.NewDistributedLock(client, cfg.DynamoDBTable, logger)
}

// ProvideOutboxProcessor creates the background outbox drainer. Each
// instance gets a random identity so the lock can tell them apart.
func ProvideOutboxProcessor(
	eventStore *dynamodb.EventStore,
	eventPublisher ports.EventPublisher,
	lock *dynamodb.DistributedLock,
	logger *zap.Logger,
) *dynamodb.OutboxProcessor {
	return dynamodb.NewOutboxProcessor(
		eventStore,
		eventPublisher,
		lock,
		uuid.New().String(),
		logger,
	)
}

// ProvideNotifier creates the WebSocket notifier, or a no-op one when no
// endpoint is configured (local development).
func ProvideNotifier(
	awsCfg aws.Config,
	client *awsdynamodb.Client,
	cfg *config.Config,
	logger *zap.Logger,
) ports.Notifier {
	if cfg.WebSocketEndpoint == "" {
		return notifications.NoopNotifier{}
	}
	return notifications.NewWebSocketNotifier(
		awsCfg,
		client,
		cfg.ConnectionsTable,
		cfg.WebSocketEndpoint,
		logger,
	)
}

// ProvideDistributedRateLimiter creates a distributed rate limiter
func ProvideDistributedRateLimiter(client *awsdynamodb.Client, cfg *config.Config) *auth.DistributedRateLimiter {
	tableName := cfg.DynamoDBTable // Could be a separate rate limit table
	return auth.NewDistributedRateLimiter(
		client,
		tableName,
		100,           // 100 requests
		1*time.Minute, // per minute
		"API",         // key prefix for API rate limiting
	)
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideEmitter creates the CloudWatch metrics emitter. Only Lambda
// deployments push to CloudWatch; elsewhere Prometheus scrapes /metrics
// and the emitter carries no client.
func ProvideEmitter(client *awscloudwatch.Client, cfg *config.Config, logger *zap.Logger) *observability.Emitter {
	if !cfg.IsLambda {
		client = nil
	}
	namespace := fmt.Sprintf("Atlas/%s", cfg.Environment)
	return observability.NewEmitter(namespace, client, logger)
}

// ProvideTraceSessionService creates the traceability session service.
// With a config watcher present, session defaults follow the dynamic
// configuration as it reloads.
func ProvideTraceSessionService(modelRepo ports.ModelRepository, watcher *config.Watcher, logger *zap.Logger) *services.TraceSessionService {
	var defaults func() services.TraceDefaults
	if watcher != nil {
		defaults = func() services.TraceDefaults {
			exploring := watcher.Current().Exploring
			return services.TraceDefaults{
				DefaultDepth:    exploring.DefaultDepth,
				MaxOpenSessions: exploring.MaxOpenSessions,
				SessionTTL:      time.Duration(exploring.SessionTTLMinutes) * time.Minute,
			}
		}
	}
	return services.NewTraceSessionService(modelRepo, defaults, logger)
}

// ProvideConfigWatcher creates the dynamic config watcher, or nil when no
// config file path is set. Write-side limits are pushed into command
// validation on creation and again after every reload.
func ProvideConfigWatcher(cfg *config.Config, logger *zap.Logger) (*config.Watcher, error) {
	if cfg.DynamicConfigPath == "" {
		return nil, nil
	}
	watcher, err := config.NewWatcher(cfg.DynamicConfigPath, logger)
	if err != nil {
		return nil, err
	}

	applyLimits := func(dc *config.DynamicConfig) {
		commands.SetLimits(dc.Limits.MaxModelsPerUser, dc.Limits.MaxNameLength)
	}
	applyLimits(watcher.Current())
	watcher.OnChange(applyLimits)

	return watcher, nil
}

// CommandHandlerAdapter adapts specific command handlers to the generic interface
type CommandHandlerAdapter struct {
	handler func(context.Context, bus.Command) error
}

func (a *CommandHandlerAdapter) Handle(ctx context.Context, cmd bus.Command) error {
	return a.handler(ctx, cmd)
}

// ProvideCommandBus creates a command bus with registered handlers
func ProvideCommandBus(
	modelRepo ports.ModelRepository,
	eventBus ports.EventBus,
	notifier ports.Notifier,
	cache ports.Cache,
	logger *zap.Logger,
) *bus.CommandBus {
	commandBus := bus.NewCommandBus()
	pipeline := bus.NewPipeline(
		bus.LoggingMiddleware(logger),
		bus.MetricsMiddleware(),
		bus.CacheInvalidationMiddleware(cache, logger),
	)

	// Register CreateModelCommand handler
	createModelHandler := commands.NewCreateModelHandler(modelRepo, eventBus, logger)
	commandBus.Register(commands.CreateModelCommand{}, pipeline.Execute(&CommandHandlerAdapter{
		handler: func(ctx context.Context, cmd bus.Command) error {
			createCmd, ok := cmd.(commands.CreateModelCommand)
			if !ok {
				return fmt.Errorf("invalid command type")
			}
			_, err := createModelHandler.Handle(ctx, createCmd)
			return err
		},
	}))

	// Register CreateElementCommand handler
	createElementHandler := commands.NewCreateElementHandler(modelRepo, eventBus, notifier, logger)
	commandBus.Register(commands.CreateElementCommand{}, pipeline.Execute(&CommandHandlerAdapter{
		handler: func(ctx context.Context, cmd bus.Command) error {
			createCmd, ok := cmd.(commands.CreateElementCommand)
			if !ok {
				return fmt.Errorf("invalid command type")
			}
			_, err := createElementHandler.Handle(ctx, createCmd)
			return err
		},
	}))

	// Register UpdateElementCommand handler
	updateElementHandler := commands.NewUpdateElementHandler(modelRepo, eventBus, notifier, logger)
	commandBus.Register(commands.UpdateElementCommand{}, pipeline.Execute(&CommandHandlerAdapter{
		handler: func(ctx context.Context, cmd bus.Command) error {
			updateCmd, ok := cmd.(commands.UpdateElementCommand)
			if !ok {
				return fmt.Errorf("invalid command type")
			}
			_, err := updateElementHandler.Handle(ctx, updateCmd)
			return err
		},
	}))

	// Register DeleteModelCommand handler
	deleteModelHandler := commands.NewDeleteModelHandler(modelRepo, eventBus, notifier, logger)
	commandBus.Register(commands.DeleteModelCommand{}, pipeline.Execute(&CommandHandlerAdapter{
		handler: func(ctx context.Context, cmd bus.Command) error {
			deleteCmd, ok := cmd.(commands.DeleteModelCommand)
			if !ok {
				return fmt.Errorf("invalid command type")
			}
			return deleteModelHandler.Handle(ctx, deleteCmd)
		},
	}))

	// Register DeleteElementCommand handler
	deleteElementHandler := commands.NewDeleteElementHandler(modelRepo, eventBus, notifier, logger)
	commandBus.Register(commands.DeleteElementCommand{}, pipeline.Execute(&CommandHandlerAdapter{
		handler: func(ctx context.Context, cmd bus.Command) error {
			deleteCmd, ok := cmd.(commands.DeleteElementCommand)
			if !ok {
				return fmt.Errorf("invalid command type")
			}
			return deleteElementHandler.Handle(ctx, deleteCmd)
		},
	}))

	// Register CreateRelationshipCommand handler
	createRelationshipHandler := commands.NewCreateRelationshipHandler(modelRepo, eventBus, notifier, logger)
	commandBus.Register(commands.CreateRelationshipCommand{}, pipeline.Execute(&CommandHandlerAdapter{
		handler: func(ctx context.Context, cmd bus.Command) error {
			createCmd, ok := cmd.(commands.CreateRelationshipCommand)
			if !ok {
				return fmt.Errorf("invalid command type")
			}
			_, err := createRelationshipHandler.Handle(ctx, createCmd)
			return err
		},
	}))

	// Register DeleteRelationshipCommand handler
	deleteRelationshipHandler := commands.NewDeleteRelationshipHandler(modelRepo, eventBus, notifier, logger)
	commandBus.Register(commands.DeleteRelationshipCommand{}, pipeline.Execute(&CommandHandlerAdapter{
		handler: func(ctx context.Context, cmd bus.Command) error {
			deleteCmd, ok := cmd.(commands.DeleteRelationshipCommand)
			if !ok {
				return fmt.Errorf("invalid command type")
			}
			return deleteRelationshipHandler.Handle(ctx, deleteCmd)
		},
	}))

	return commandBus
}

// QueryHandlerAdapter adapts specific query handlers to the generic interface
type QueryHandlerAdapter struct {
	handler func(context.Context, querybus.Query) (interface{}, error)
}

func (a *QueryHandlerAdapter) Handle(ctx context.Context, query querybus.Query) (interface{}, error) {
	return a.handler(ctx, query)
}

// ProvideQueryBus creates a query bus with registered handlers. Path
// queries are wrapped with caching since every ask redoes a graph build
// plus a search; model reads stay uncached so writes are visible
// immediately.
func ProvideQueryBus(
	modelRepo ports.ModelRepository,
	cache ports.Cache,
	cfg *config.Config,
	logger *zap.Logger,
) *querybus.QueryBus {
	queryBus := querybus.NewQueryBus()
	metrics := querybus.NewMetricsMiddleware()
	caching := querybus.NewCachingMiddleware(cache, cfg.QueryCacheTTL)

	// Register GetModelQuery handler
	getModelHandler := queries_handlers.NewGetModelHandler(modelRepo, logger)
	queryBus.Register(queries.GetModelQuery{}, metrics.Wrap(&QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			getQuery, ok := query.(queries.GetModelQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type")
			}
			return getModelHandler.Handle(ctx, getQuery)
		},
	}))

	// Register ListModelsQuery handler
	queryBus.Register(queries.ListModelsQuery{}, metrics.Wrap(&QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			listQuery, ok := query.(queries.ListModelsQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type")
			}
			return getModelHandler.HandleList(ctx, listQuery)
		},
	}))

	// Register FindPathQuery handler
	pathHandler := queries_handlers.NewPathHandler(modelRepo, logger)
	queryBus.Register(queries.FindPathQuery{}, metrics.Wrap(caching.Wrap(&QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			pathQuery, ok := query.(queries.FindPathQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type")
			}
			return pathHandler.HandleFindPath(ctx, pathQuery)
		},
	})))

	// Register FindPathsQuery handler
	queryBus.Register(queries.FindPathsQuery{}, metrics.Wrap(caching.Wrap(&QueryHandlerAdapter{
		handler: func(ctx context.Context, query querybus.Query) (interface{}, error) {
			pathsQuery, ok := query.(queries.FindPathsQuery)
			if !ok {
				return nil, fmt.Errorf("invalid query type")
			}
			return pathHandler.HandleFindPaths(ctx, pathsQuery)
		},
	})))

	return queryBus
}

// ProvideInMemoryCache creates a simple in-memory cache
// In production, this would be Redis or similar
func ProvideInMemoryCache() ports.Cache {
	return NewInMemoryCache()
}
