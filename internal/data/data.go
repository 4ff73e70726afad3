// Package data provides data access layer implementations.
// It handles the Redis connection and the upstream SWAPI gateway.
package data

import (
	"StarPort/internal/biz"

	"github.com/google/wire"
)

// ProviderSet is data providers.
var ProviderSet = wire.NewSet(
	NewRedisClient,
	NewCircuitBreakerStore,
	NewQueryLogRepo,
	NewResourceResolver,
	NewSwapiHTTPGateway,
	// Bind data layer implementations to biz layer interfaces
	wire.Bind(new(biz.QueryLogRepo), new(*QueryLogRepo)),
	wire.Bind(new(biz.SwapiGateway), new(*SwapiHTTPGateway)),
)
