package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"

	"github.com/nkiryanov/shortener/internal/handlers/middleware"
	"github.com/nkiryanov/shortener/internal/handlers/render"
	"github.com/nkiryanov/shortener/internal/logger"
	"github.com/nkiryanov/shortener/internal/metrics"
	"github.com/nkiryanov/shortener/internal/models"
	"github.com/nkiryanov/shortener/internal/service/auth"
)

type Config struct {
	// Render raw error text and panic stacks in responses
	ShowErrorDetail bool

	// Origins allowed to call the API with credentials
	CORSOrigins []string

	// Requests per minute per client IP for login and register; 0 disables limiting
	AuthRateLimitRPM int

	// Exposed on GET /metrics when set
	Metrics *metrics.Metrics
}

func NewRouter(
	cfg Config,
	authService authService,
	cookies cookieBinder,
	storage pinger,
	l logger.Logger,
) http.Handler {
	onError := errorHandler(l, cfg.ShowErrorDetail)
	authMiddleware := middleware.NewAuth(authService, cookies, onError)
	if cfg.Metrics != nil {
		authMiddleware.Observe(cfg.Metrics.ObserveAuth)
	}
	limiter := middleware.NewRateLimit(cfg.AuthRateLimitRPM)

	h := &authHandler{auth: authService, cookies: cookies, onError: onError}

	r := chi.NewRouter()
	r.Use(
		chimw.RequestID,
		chimw.RealIP,
		middleware.LoggerMiddleware(l),
		middleware.Recovery(l, cfg.ShowErrorDetail),
		middleware.CORS(cfg.CORSOrigins),
	)
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
		r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		render.ServiceError(w, "Not found", http.StatusNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		render.ServiceError(w, "Method not allowed", http.StatusMethodNotAllowed)
	})

	r.Get("/health", handleHealth(storage))

	r.Route("/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(limiter.Handler)
			r.Post("/register", h.handle(h.register))
			r.Post("/login", h.handle(h.login))
		})

		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Auth)
			r.Post("/logout", h.handle(h.logout))
			r.Get("/me", handleMe())
		})
	})

	return r
}

type authService interface {
	// Register user with email and password
	// Has to return apperrors.ErrUserAlreadyExists if user already exists
	Register(ctx context.Context, email string, password string) (models.Identity, error)

	// Login user with email and password
	// Has to return apperrors.ErrUserNotFound or apperrors.ErrInvalidPassword on bad credentials
	Login(ctx context.Context, email string, password string) (models.Identity, models.TokenPair, error)

	// Authenticate request by its tokens
	Authenticate(ctx context.Context, accessToken string, refreshToken string) auth.Result

	// Forget user refresh token
	Logout(ctx context.Context, userID uuid.UUID) error
}

type cookieBinder interface {
	AccessToken(r *http.Request) string
	RefreshToken(r *http.Request) string
	SetAuthCookies(w http.ResponseWriter, pair models.TokenPair)
	ClearAuthCookies(w http.ResponseWriter)
}

type pinger interface {
	Ping(ctx context.Context) error
}
