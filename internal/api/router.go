package api

import (
	"database/sql"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/isdelr/blogpost-be/internal/api/handlers"
	"github.com/isdelr/blogpost-be/internal/auth"
	"github.com/isdelr/blogpost-be/internal/logger"
	"github.com/isdelr/blogpost-be/internal/services"
	"github.com/isdelr/blogpost-be/internal/websocket"
)

// Services bundles the business logic the router exposes.
type Services struct {
	Users     services.UserServiceProvider
	Posts     services.PostServiceProvider
	Comments  services.CommentServiceProvider
	Analytics services.AnalyticsServiceProvider
}

// Options tunes transport-level behavior.
type Options struct {
	AllowedOrigins []string
	Cookies        handlers.Cookies
	ExposeToken    bool // return the login token in the body as well as the cookie
}

// NewRouter creates and configures a new Chi router.
func NewRouter(db *sql.DB, guard *auth.Guard, hub *websocket.Hub, svc Services, opts Options) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logger.RequestLogger)
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   opts.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-CSRF-Token"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Initialize handlers
	accountHandler := handlers.NewAccountHandler(svc.Users, opts.Cookies, opts.ExposeToken)
	postHandler := handlers.NewPostHandler(svc.Posts)
	commentHandler := handlers.NewCommentHandler(svc.Comments)
	analyticsHandler := handlers.NewAnalyticsHandler(svc.Analytics)
	feedHandler := handlers.NewFeedHandler(hub, opts.AllowedOrigins)
	healthHandler := handlers.NewHealthHandler(db)

	r.Get("/health", healthHandler.Serve)

	// API versioning
	r.Route("/api/v1", func(r chi.Router) {
		// Public
		r.Post("/register", accountHandler.Register)
		r.Post("/login", accountHandler.Login)

		// Everything else needs a current session.
		r.Group(func(r chi.Router) {
			r.Use(guard.Middleware)

			r.Post("/logout", accountHandler.Logout)

			r.Route("/account", func(r chi.Router) {
				r.Get("/", accountHandler.Get)
				r.Put("/", accountHandler.Update)
				r.Delete("/", accountHandler.Delete)
				r.Put("/password", accountHandler.ChangePassword)
			})

			r.Route("/posts", func(r chi.Router) {
				r.Get("/", postHandler.List)
				r.Post("/", postHandler.Create)
				r.Get("/mine", postHandler.ListMine)
				r.Get("/search", postHandler.Search)
				r.Get("/category/{category}", postHandler.ListByCategory)
				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", postHandler.Get)
					r.Put("/", postHandler.Update)
					r.Delete("/", postHandler.Delete)
					r.Get("/comments", commentHandler.ListForPost)
					r.Post("/comments", commentHandler.Create)
				})
			})

			r.Route("/comments", func(r chi.Router) {
				r.Get("/mine", commentHandler.ListMine)
				r.Put("/{id}", commentHandler.Update)
				r.Delete("/{id}", commentHandler.Delete)
			})

			r.Route("/analytics", func(r chi.Router) {
				r.Get("/categories", analyticsHandler.Categories)
				r.Get("/bloggers", analyticsHandler.Bloggers)
				r.Get("/histogram", analyticsHandler.Histogram)
			})

			r.Get("/feed/ws", feedHandler.Serve)
		})
	})

	return r
}
