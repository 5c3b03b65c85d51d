// Package server wires the console's HTTP surface: a public login and
// healthcheck, and a token-protected perimeter for everything else.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/xela07ax/fleetwatch/internal/console/handler"
	"github.com/xela07ax/fleetwatch/internal/console/service"
	"github.com/xela07ax/fleetwatch/internal/infra/auth"
)

type ConsoleServer struct {
	router *chi.Mux
	logger *zap.Logger

	authService *service.AuthService

	authHandler     *handler.AuthHandler
	agentHandler    *handler.AgentHandler
	budgetHandler   *handler.BudgetHandler
	ruleHandler     *handler.RuleHandler
	alertHandler    *handler.AlertHandler
	costHandler     *handler.CostHandler
	snitchHandler   *handler.SnitchHandler
	activityHandler *handler.ActivityHandler
	channelHandler  *handler.ChannelHandler
	ingestHandler   *handler.IngestHandler
	dashHandler     *handler.DashboardHandler
}

func NewConsoleServer(
	logger *zap.Logger,
	authService *service.AuthService,
	authH *handler.AuthHandler,
	agentH *handler.AgentHandler,
	budgetH *handler.BudgetHandler,
	ruleH *handler.RuleHandler,
	alertH *handler.AlertHandler,
	costH *handler.CostHandler,
	snitchH *handler.SnitchHandler,
	activityH *handler.ActivityHandler,
	channelH *handler.ChannelHandler,
	ingestH *handler.IngestHandler,
	dashH *handler.DashboardHandler,
) *ConsoleServer {
	s := &ConsoleServer{
		router:          chi.NewRouter(),
		logger:          logger.Named("console-api"),
		authService:     authService,
		authHandler:     authH,
		agentHandler:    agentH,
		budgetHandler:   budgetH,
		ruleHandler:     ruleH,
		alertHandler:    alertH,
		costHandler:     costH,
		snitchHandler:   snitchH,
		activityHandler: activityH,
		channelHandler:  channelH,
		ingestHandler:   ingestH,
		dashHandler:     dashH,
	}

	s.routes()
	return s
}

func (s *ConsoleServer) routes() {
	r := s.router

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// public
	r.Group(func(r chi.Router) {
		r.Post("/auth/token", s.authHandler.Login)

		r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		})
	})

	// protected perimeter
	r.Group(func(r chi.Router) {
		r.Use(auth.NewMiddleware(s.authService, s.logger))

		r.Get("/api/v1/dashboard/stats", s.dashHandler.GetStats)

		r.Route("/v1/agents", func(r chi.Router) {
			r.Get("/", s.agentHandler.List)
			r.Post("/", s.ingestHandler.RegisterAgent)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.agentHandler.Get)
				r.Post("/stop", s.agentHandler.Stop)
				r.Post("/resume", s.agentHandler.Resume)
				r.Post("/heartbeat", s.ingestHandler.Heartbeat)
				r.Post("/sessions", s.ingestHandler.Sessions)
				r.Get("/activities", s.activityHandler.RecentByAgent)
				r.Get("/score", s.snitchHandler.AgentScore)
			})
		})

		r.Route("/v1/budgets", func(r chi.Router) {
			r.Get("/", s.budgetHandler.List)
			r.Post("/", s.budgetHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.budgetHandler.Get)
				r.Put("/", s.budgetHandler.Update)
				r.Delete("/", s.budgetHandler.Delete)
				r.Post("/spend", s.budgetHandler.Spend)
			})
		})

		r.Route("/v1/rules", func(r chi.Router) {
			r.Get("/", s.ruleHandler.List)
			r.Post("/", s.ruleHandler.Create)
			r.Post("/evaluate", s.ruleHandler.EvaluateNow)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.ruleHandler.Get)
				r.Put("/", s.ruleHandler.Update)
				r.Delete("/", s.ruleHandler.Delete)
			})
		})

		r.Route("/v1/alerts", func(r chi.Router) {
			r.Get("/", s.alertHandler.List)
			r.Post("/{id}/ack", s.alertHandler.Acknowledge)
			r.Post("/{id}/resolve", s.alertHandler.Resolve)
		})

		r.Route("/v1/costs", func(r chi.Router) {
			r.Get("/overview", s.costHandler.Overview)
			r.Get("/timeseries", s.costHandler.Timeseries)
			r.Post("/", s.ingestHandler.Costs)
		})

		r.Route("/v1/snitches", func(r chi.Router) {
			r.Post("/", s.snitchHandler.Record)
			r.Get("/leaderboard", s.snitchHandler.Leaderboard)
		})

		r.Route("/v1/activities", func(r chi.Router) {
			r.Get("/", s.activityHandler.Recent)
			r.Post("/", s.ingestHandler.Activities)
		})

		r.Route("/v1/channels", func(r chi.Router) {
			r.Get("/", s.channelHandler.List)
			r.Post("/", s.channelHandler.Create)
			r.Route("/{id}", func(r chi.Router) {
				r.Put("/", s.channelHandler.Update)
				r.Delete("/", s.channelHandler.Delete)
			})
		})
	})
}

func (s *ConsoleServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}
