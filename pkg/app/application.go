package app

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"tourbook/pkg/config"
	"tourbook/pkg/contracts"
	apperrors "tourbook/pkg/errors"
	httputil "tourbook/pkg/http"
	"tourbook/pkg/middleware"

	"github.com/julienschmidt/httprouter"
)

type Middleware func(http.Handler) http.Handler

// chain applies mws so the first one listed sees the request first.
func chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

type Application struct {
	cfg              *config.Config
	server           *http.Server
	idempotencyStore middleware.IdempotencyStore
	rateLimiter      *middleware.ActorRateLimiter
	onShutdown       []func(ctx context.Context)
}

func NewApplication() *Application {
	return &Application{}
}

// SetApp builds the HTTP stack. Health checks get only Recovery and Logging so they
// keep answering when the API itself is throttled or rejecting callers.
func (a *Application) SetApp(cfg *config.Config, health contracts.Handler, appHandlers ...contracts.Handler) {
	a.cfg = cfg

	mux := http.NewServeMux()
	checks := a.healthHandler(health)
	mux.Handle("/health", checks)
	mux.Handle("/ready", checks)
	mux.Handle("/", a.apiHandler(appHandlers))

	a.server = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           mux,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
	cfg.Log.Info("HTTP server configured", "port", cfg.Port, "handlers", len(appHandlers))
}

// OnShutdown registers a hook that runs after the HTTP server has drained, in
// registration order.
func (a *Application) OnShutdown(fn func(ctx context.Context)) {
	a.onShutdown = append(a.onShutdown, fn)
}

// Handler exposes the composed mux, mainly for tests.
func (a *Application) Handler() http.Handler {
	return a.server.Handler
}

func (a *Application) healthHandler(health contracts.Handler) http.Handler {
	router := newRouter()
	health.RegisterRoutes(router)
	return chain(router,
		middleware.Recovery(a.cfg.Log),
		middleware.RequestLogging(a.cfg.Log),
	)
}

func (a *Application) apiHandler(handlers []contracts.Handler) http.Handler {
	router := newRouter()
	for _, h := range handlers {
		h.RegisterRoutes(router)
	}

	if a.cfg.Client != nil && a.cfg.Client.Redis != nil {
		a.idempotencyStore = middleware.NewRedisIdempotencyStore(a.cfg.Client.Redis, a.cfg.IdempotencyTTL)
		a.cfg.Log.Info("Idempotency keys stored in Redis")
	} else {
		a.idempotencyStore = middleware.NewInMemoryIdempotencyStore(a.cfg.IdempotencyTTL)
	}
	a.rateLimiter = middleware.NewActorRateLimiter(
		a.cfg.RateLimitRequests,
		a.cfg.RateLimitWindow,
		middleware.ActorOrAddress,
		a.cfg.Log,
	)

	return chain(router,
		middleware.Recovery(a.cfg.Log),
		middleware.RequestLogging(a.cfg.Log),
		middleware.MaxRequestSize(int64(a.cfg.MaxRequestSize)),
		middleware.ContentTypeValidation(a.cfg.Log),
		middleware.Identity(a.cfg.JWTSecret, a.cfg.Log),
		middleware.RateLimit(a.rateLimiter),
		middleware.RequestTimeout(a.cfg.RequestTimeout),
		middleware.Idempotency(a.idempotencyStore),
	)
}

// newRouter answers unknown routes and methods with the standard error body.
func newRouter() *httprouter.Router {
	router := httprouter.New()
	router.NotFound = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = httputil.WriteError(w, apperrors.NotFoundWithID("Route", r.URL.Path))
	})
	router.MethodNotAllowed = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = httputil.WriteError(w, apperrors.New("METHOD_NOT_ALLOWED", r.Method+" is not allowed on "+r.URL.Path, http.StatusMethodNotAllowed))
	})
	return router
}

// Run serves until ctx is cancelled or SIGINT/SIGTERM arrives, then drains.
// It returns an error only when the listener itself fails.
func (a *Application) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	serverErrors := make(chan error, 1)
	go func() {
		a.cfg.Log.Info("Starting HTTP server", "address", a.server.Addr)
		serverErrors <- a.server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		a.cfg.Log.Info("Shutdown requested", "cause", context.Cause(ctx))
		a.gracefulShutdown()
		return nil
	}
}

func (a *Application) gracefulShutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()

	if err := a.server.Shutdown(ctx); err != nil {
		a.cfg.Log.Error("Server shutdown failed, closing connections", "error", err)
		_ = a.server.Close()
	}

	a.idempotencyStore.Stop()
	a.rateLimiter.Stop()
	for _, fn := range a.onShutdown {
		fn(ctx)
	}
	a.cfg.Log.Info("Server stopped gracefully")
}
