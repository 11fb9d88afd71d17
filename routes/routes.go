package routes

import (
	"net/http"

	"github.com/Dosada05/duel-tournament/docs"
	"github.com/Dosada05/duel-tournament/handlers"
	"github.com/Dosada05/duel-tournament/middleware"
	"github.com/Dosada05/duel-tournament/models"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware" // Alias to avoid conflict
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	httpSwagger "github.com/swaggo/http-swagger"
)

// Deps - все, что нужно маршрутизатору.
type Deps struct {
	TournamentHandler *handlers.TournamentHandler
	DuelHandler       *handlers.DuelHandler
	WebSocketHandler  *handlers.WebSocketHandler
	JWTSecret         []byte
	AllowedOrigins    []string
	// Gatherer для /metrics. nil - глобальный реестр prometheus.
	Metrics prometheus.Gatherer
}

func SetupRoutes(router *chi.Mux, deps Deps) {
	router.Use(chiMiddleware.RequestID)
	router.Use(chiMiddleware.Logger)
	router.Use(chiMiddleware.Recoverer)
	router.Use(cors.Handler(cors.Options{
		AllowedOrigins:   deps.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	gatherer := deps.Metrics
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	router.Get(docs.OpenAPIPath, docs.Handler)
	router.Get("/swagger/*", httpSwagger.Handler(httpSwagger.URL(docs.OpenAPIPath)))

	authenticate := middleware.Authenticate(deps.JWTSecret)
	operatorOnly := middleware.Authorize(models.RoleOrganizer, models.RoleAdmin)

	th := deps.TournamentHandler
	dh := deps.DuelHandler

	router.Route("/tournaments/{tournamentID}", func(r chi.Router) {
		// Публичные маршруты для просмотра сетки
		r.Get("/bracket", th.GetBracket)
		r.Get("/duels", dh.ListDuels)
		r.Get("/duels/{duelID}", dh.GetDuel)

		// Ответы команд: любой аутентифицированный участник
		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/duels/{duelID}/submissions", dh.SubmitAnswer)
		})

		// Защищенные маршруты только для организаторов
		r.Group(func(r chi.Router) {
			r.Use(authenticate)
			r.Use(operatorOnly)

			r.Post("/bracket", th.InitializeBracket)
			r.Post("/rounds/{round}/judge", th.JudgeRound)
			r.Post("/duels/{duelID}/schedule", dh.ScheduleDuel)
			r.Post("/duels/{duelID}/start", dh.StartDuel)
			r.Post("/duels/{duelID}/expire", dh.ExpireDuel)
			r.Post("/duels/{duelID}/judge", dh.JudgeDuel)
			r.Post("/duels/{duelID}/advance", dh.AdvanceDuel)
			r.Post("/duels/{duelID}/override", dh.OverrideVerdict)
		})
	})

	if deps.WebSocketHandler != nil {
		router.Get("/ws/tournaments/{tournamentID}", deps.WebSocketHandler.ServeWs)
	}
}
