package app

import (
	"canister"
	"canister/internal/config"
	"canister/internal/database"
	"canister/internal/database/migration"
	"canister/internal/http/handler"
	"canister/internal/http/middleware"
	"canister/internal/http/router"
	"canister/internal/http/server"
	"canister/internal/repository"
	"canister/internal/repository/postgres"
	"canister/internal/service"
	"canister/internal/storage"
	"canister/internal/telemetry"
)

// Modules returns the application's wiring in registration order. Eager
// singletons start in this order too, so the migration runner always
// finishes before the HTTP server binds.
func Modules() []*canister.Module {
	return []*canister.Module{
		ConfigModule(),
		InfraModule(),
		CoreModule(),
	}
}

// ConfigModule derives per-component sections from the root AppConfig so
// constructors depend only on the slice of configuration they use.
func ConfigModule() *canister.Module {
	return canister.NewModule("config").
		Provide(func(cfg *config.AppConfig) config.DatabaseConfig { return cfg.Database }).
		Provide(func(cfg *config.AppConfig) config.BlobstoreConfig { return cfg.Blobstore }).
		Provide(func(cfg *config.AppConfig) config.TelemetryConfig { return cfg.Telemetry })
}

// InfraModule provides the components that reach external systems: the
// database pool, the blob store and the trace exporter. Wiring tests swap
// this module for fakes.
func InfraModule() *canister.Module {
	return canister.NewModule("infra").
		Provide(database.New).
		Provide(storage.NewMinIO).
		Provide(telemetry.New, canister.Eager())
}

// CoreModule provides everything between the infrastructure and the
// listener. Handlers join the http.routes group as Registrars; the router
// collects the group, so adding an endpoint is one Provide line here.
func CoreModule() *canister.Module {
	return canister.NewModule("core").
		Provide(migration.NewRunner, canister.Eager()).
		Provide(postgres.NewArtifactPostgres, canister.As(new(repository.ArtifactRepository))).
		Provide(service.NewArtifactService).
		Provide(middleware.NewHTTPMetrics).
		Provide(handler.NewArtifactHandler, canister.Group("http.routes"), canister.As(new(handler.Registrar))).
		Provide(handler.NewHealthHandler, canister.Group("http.routes"), canister.As(new(handler.Registrar))).
		Provide(handler.NewMetricsHandler, canister.Group("http.routes"), canister.As(new(handler.Registrar))).
		Provide(handler.NewDocsHandler, canister.Group("http.routes"), canister.As(new(handler.Registrar))).
		Provide(router.New).
		Provide(server.New, canister.Eager())
}
