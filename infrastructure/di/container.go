package di

import (
	"atlas-backend/application/commands/bus"
	"atlas-backend/application/ports"
	querybus "atlas-backend/application/queries/bus"
	"atlas-backend/application/services"
	"atlas-backend/infrastructure/config"
	"atlas-backend/infrastructure/persistence/dynamodb"
	"atlas-backend/pkg/auth"
	"atlas-backend/pkg/observability"

	"go.uber.org/zap"
)

// Container holds all application dependencies
type Container struct {
	Config          *config.Config
	Logger          *zap.Logger
	ModelRepo       ports.ModelRepository
	EventBus        ports.EventBus
	EventStore      *dynamodb.EventStore
	OutboxProcessor *dynamodb.OutboxProcessor
	Notifier        ports.Notifier
	CommandBus      *bus.CommandBus
	QueryBus        *querybus.QueryBus
	Cache           ports.Cache
	TraceSessions   *services.TraceSessionService
	RateLimiter     *auth.DistributedRateLimiter
	ConfigWatcher   *config.Watcher
	Emitter         *observability.Emitter
}
