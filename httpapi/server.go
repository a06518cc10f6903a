package httpapi

import (
	"net/http"
	"time"

	goSSO "github.com/MrEthical07/goSSO"
	"github.com/MrEthical07/goSSO/middleware"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/sirupsen/logrus"
)

// Options tunes the HTTP surface. Zero values take the defaults noted.
type Options struct {
	Logger logrus.FieldLogger // logrus.StandardLogger()

	// AuthRatePerSecond and AuthBurst size the per-IP token bucket on POST /auth.
	AuthRatePerSecond float64 // 5
	AuthBurst         int     // 10
	LimiterSize       int     // 10000 tracked IPs
	LimiterIdle       time.Duration

	MaxBodyBytes int64 // 64 KiB

	// TrustProxyHeaders takes the client IP from X-Forwarded-For / X-Real-IP.
	// Enable only behind a proxy that sets them.
	TrustProxyHeaders bool

	// Metrics, when set, is mounted at GET /metrics.
	Metrics http.Handler
}

func (o Options) withDefaults() Options {
	if o.Logger == nil {
		o.Logger = logrus.StandardLogger()
	}
	if o.AuthRatePerSecond <= 0 {
		o.AuthRatePerSecond = 5
	}
	if o.AuthBurst <= 0 {
		o.AuthBurst = 10
	}
	if o.LimiterSize <= 0 {
		o.LimiterSize = 10000
	}
	if o.LimiterIdle <= 0 {
		o.LimiterIdle = 5 * time.Minute
	}
	if o.MaxBodyBytes <= 0 {
		o.MaxBodyBytes = 64 << 10
	}
	return o
}

type handler struct {
	engine *goSSO.Engine
	logger logrus.FieldLogger
	now    func() time.Time
}

// NewRouter assembles the chi router for engine.
func NewRouter(engine *goSSO.Engine, opts Options) http.Handler {
	opts = opts.withDefaults()
	h := &handler{
		engine: engine,
		logger: opts.Logger.WithField("component", "httpapi"),
		now:    time.Now,
	}
	limiter := newIPLimiter(opts.AuthRatePerSecond, opts.AuthBurst, opts.LimiterSize, opts.LimiterIdle)
	guard := middleware.Guard(engine, writeError)

	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	if opts.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(requestLogger(h.logger))
	r.Use(chimw.Recoverer)
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			req.Body = http.MaxBytesReader(w, req.Body, opts.MaxBodyBytes)
			next.ServeHTTP(w, req)
		})
	})

	r.With(limiter.RateLimit).Post("/auth", h.login)

	r.Get("/check-ticket", h.checkTicket)
	r.Get("/permissions", h.ticketPermissions)
	r.Post("/refresh-ticket", h.refreshTicket)
	r.Post("/single-logout", h.singleLogout)
	r.Get("/session-status", h.sessionStatus)

	r.Group(func(r chi.Router) {
		r.Use(guard)
		r.Post("/logout", h.logout)
		r.Post("/renew", h.renew)
		r.Get("/me/menus", h.menus)
		r.Get("/me/permissions", h.myPermissions)
	})

	r.Get("/healthz", h.healthz)
	if opts.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", opts.Metrics)
	}

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, envelope{Code: codeNotFound, Message: "not found"})
	})

	return r
}

const codeNotFound = 4040
