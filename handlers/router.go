package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/kevinaaaquil/bookswap/logger"
	"github.com/kevinaaaquil/bookswap/middleware"
	"github.com/kevinaaaquil/bookswap/service"
	"github.com/kevinaaaquil/bookswap/utils"
)

// RouterConfig carries everything the HTTP surface depends on.
type RouterConfig struct {
	Accounts     *service.Accounts
	Listings     *service.Listings
	Limiter      middleware.Limiter
	CORSOrigins  []string
	MaxBodyBytes int64
}

func NewRouter(cfg RouterConfig) http.Handler {
	users := &UsersHandler{Accounts: cfg.Accounts}
	books := &BooksHandler{Listings: cfg.Listings, MaxImageBytes: cfg.MaxBodyBytes}
	auth := middleware.Auth(cfg.Accounts)

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(middleware.Logging(logger.Log))
	r.Use(chimw.Recoverer)
	r.Use(middleware.CORS(cfg.CORSOrigins))
	if cfg.MaxBodyBytes > 0 {
		r.Use(chimw.RequestSize(cfg.MaxBodyBytes))
	}
	r.Use(middleware.Sanitize)

	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Write([]byte("Book exchange API is running"))
	})
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		utils.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Route("/users", func(r chi.Router) {
			if cfg.Limiter != nil {
				r.Use(middleware.RateLimit(cfg.Limiter))
			}
			r.Post("/", users.Register)
			r.Post("/login", users.Login)
			r.Group(func(r chi.Router) {
				r.Use(auth)
				r.Get("/me", users.Me)
				r.Put("/me", users.UpdateMe)
				r.Delete("/me", users.DeleteMe)
				r.Get("/{id}", users.Public)
			})
		})

		r.Route("/books", func(r chi.Router) {
			r.Get("/", books.List)
			r.Put("/like/{id}", books.Like)
			r.Group(func(r chi.Router) {
				r.Use(auth)
				r.Post("/create", books.Create)
				r.Get("/my-books", books.MyBooks)
				r.Put("/my-books/{id}", books.Update)
				r.Delete("/my-books/{id}", books.Delete)
			})
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		utils.Fail(w, http.StatusNotFound, utils.CodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		utils.Fail(w, http.StatusMethodNotAllowed, utils.CodeMethodNotAllowed, "method not allowed")
	})
	return r
}
