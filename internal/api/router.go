package api

import (
	"net/http"

	"github.com/ThinkalVB/entebus-server/internal/api/handlers"
	"github.com/ThinkalVB/entebus-server/internal/ports"
	"github.com/ThinkalVB/entebus-server/internal/services"
)

// NewRouter wires HTTP handlers with their dependencies and returns an http.Handler.
// This is the API composition root (handlers stay unaware of concrete adapters).
func NewRouter(
	engine *services.TriggerEngine,
	manager *services.LifecycleManager,
	issuer *services.TicketIssuer,
	resolver *services.FareResolver,
	locator ports.LandmarkLocator,
) http.Handler {
	mux := http.NewServeMux()

	triggerHandler := &handlers.TriggerHandler{Engine: engine}
	lifecycleHandler := &handlers.LifecycleHandler{Manager: manager}
	ticketHandler := &handlers.TicketHandler{Issuer: issuer}
	fareHandler := &handlers.FareHandler{Resolver: resolver, Locator: locator}

	mux.HandleFunc("/health", handlers.Health)
	mux.HandleFunc("/tick", triggerHandler.Tick)
	mux.HandleFunc("/schedules/trigger", triggerHandler.Trigger)
	mux.HandleFunc("/fares/quote", fareHandler.Quote)
	mux.HandleFunc("/services/transition", lifecycleHandler.TransitionService)
	mux.HandleFunc("/duties/transition", lifecycleHandler.TransitionDuty)
	mux.HandleFunc("/duties/assign", lifecycleHandler.AssignDuty)
	mux.HandleFunc("/tickets/paper", ticketHandler.IssuePaper)
	mux.HandleFunc("/tickets/digital", ticketHandler.IssueDigital)

	return loggingMiddleware(mux)
}
