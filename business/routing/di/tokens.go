// Package di contains dependency injection tokens for the routing context.
package di

import (
	"github.com/fd1az/swap-router/business/routing/app"
	"github.com/fd1az/swap-router/internal/di"
)

// Public service tokens - exposed to other modules
var (
	RoutingService = di.NewToken[*app.RoutingService]("routing.RoutingService")
)

// Private dependency tokens - internal to routing module
var (
	VenueAdapters = di.NewToken[[]app.VenueAdapter]("routing:venueAdapters")
)

// GetRoutingService resolves the routing service.
func GetRoutingService(c di.ServiceRegistry) *app.RoutingService {
	return di.GetToken(c, RoutingService)
}

// GetVenueAdapters resolves the adapters in registration order.
func GetVenueAdapters(c di.ServiceRegistry) []app.VenueAdapter {
	return di.GetToken(c, VenueAdapters)
}
