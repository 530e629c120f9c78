package fx

import (
	"database/sql"

	"go.uber.org/fx"

	"ladder-engine/internal/api"
	"ladder-engine/internal/config"
	"ladder-engine/internal/database"
	"ladder-engine/internal/db"
	"ladder-engine/internal/logger"
	"ladder-engine/internal/metrics"
	"ladder-engine/internal/repository"
	"ladder-engine/internal/server"
	"ladder-engine/internal/service"
)

func ProvideQueries(sqlDB *sql.DB) *db.Queries {
	return db.New(sqlDB)
}

func ProvidePinger(sqlDB *sql.DB) server.Pinger {
	return sqlDB
}

var Module = fx.Options(
	logger.Module,
	config.Module,
	fx.Provide(database.New),
	fx.Provide(ProvideQueries),
	// repos
	fx.Provide(repository.NewPlayerRepository),
	fx.Provide(repository.NewMatchRepository),
	fx.Provide(repository.NewRatingHistoryRepository),
	// remote store
	fx.Provide(api.NewStoreClient),
	metrics.Module,
	// svc
	service.Module,
	// server
	fx.Provide(ProvidePinger),
	fx.Provide(server.NewLadderServer),
)
