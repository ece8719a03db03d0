// router.go - HTTP routes, middleware and the Server that owns them
package server

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/websocket"

	"stat-attack/session"
)

// Pinger reports whether the box-score database is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Options configure a Server.
type Options struct {
	DB          Pinger // nil skips the database in /health
	BotDelay    time.Duration
	CORSOrigins []string
	AdminToken  string // empty disables the admin routes
	RulesFile   string
}

// Server serves the REST API and the live duel socket for a session manager.
type Server struct {
	sessions *session.Manager
	hub      *Hub
	upgrader websocket.Upgrader

	db          Pinger
	botDelay    time.Duration
	corsOrigins []string
	adminToken  string
	rulesFile   string
}

func New(m *session.Manager, opts Options) *Server {
	origins := opts.CORSOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s := &Server{
		sessions:    m,
		hub:         NewHub(),
		db:          opts.DB,
		botDelay:    opts.BotDelay,
		corsOrigins: origins,
		adminToken:  opts.AdminToken,
		rulesFile:   opts.RulesFile,
	}
	s.upgrader = websocket.Upgrader{CheckOrigin: s.checkOrigin}
	return s
}

func logf(format string, args ...interface{}) {
	log.Printf("[server] "+format, args...)
}

// Hub exposes the websocket hub.
func (s *Server) Hub() *Hub { return s.hub }

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.corsOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Admin-Token"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// the socket outlives any request timeout
	r.Get("/ws", s.ServeWs)

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(30 * time.Second))

		r.Get("/health", s.HealthCheck)

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/strategies", s.Strategies)
			r.Get("/saves", s.ListSlots)
			r.Delete("/saves/{slot}", s.DeleteSlot)

			r.Post("/sessions", s.CreateSession)
			r.Route("/sessions/{id}", func(r chi.Router) {
				r.Get("/", s.GetSession)
				r.Post("/shop/gametape", s.BuyGametape)
				r.Post("/shop/player", s.BuyPlayerCard)
				r.Post("/sell/gametape", s.SellGametape)
				r.Post("/sell/player", s.SellPlayerCard)
				r.Post("/duels", s.PlayDuel)
				r.Post("/team-battles", s.PlayTeamBattle)
				r.Get("/save", s.ExportSave)
				r.Put("/save", s.ImportSave)
				r.Post("/save/{slot}", s.SaveSlot)
				r.Post("/load/{slot}", s.LoadSlot)
			})
		})

		if s.adminToken != "" {
			r.Post("/admin/reload-rules", s.ReloadRules)
		}
	})

	return r
}
