package http

import (
	"log/slog"
	"net/http"
	"net/netip"
	"time"

	httpSwagger "github.com/swaggo/http-swagger"

	_ "github.com/wealthstudio/studio-auth/api/auth" // Swagger docs
	"github.com/wealthstudio/studio-auth/internal/auth/domain"
	"github.com/wealthstudio/studio-auth/internal/auth/service"
	"github.com/wealthstudio/studio-auth/pkg/httpx"
	"github.com/wealthstudio/studio-auth/pkg/slogx"
)

// Options tunes the cross-cutting middleware.
type Options struct {
	CORSOrigins    []string
	TrustedProxies []netip.Prefix
	RequestTimeout time.Duration
	RateLimits     httpx.RateLimitProfiles
}

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger
	db           Pinger
	limits       httpx.RateLimitProfiles

	AuthService      *service.AuthService
	BootstrapService *service.BootstrapService
}

func NewRouter(buildVersion string, db Pinger, logger *slog.Logger, opts Options) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		logger:       logger,
		db:           db,
		limits:       opts.RateLimits,
	}

	// Outermost first: the client address is resolved before anything keys
	// on it, and logging sees CORS preflights and timeouts
	r.middlewares = []httpx.Middleware{
		httpx.RealIP(opts.TrustedProxies),
		slogx.HTTPMiddleware(r.logger),
		httpx.CORS(opts.CORSOrigins),
		httpx.Timeout(opts.RequestTimeout),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAccount()
	r.registerInvites()
	r.registerAdmin()
	r.registerSystem()
	r.registerBootstrap()

	r.Mux.Handle("/swagger/", httpSwagger.Handler())
}

// ServeHTTP implements http.Handler for Router and applies the global middleware chain.
//
//	@title			Studio Authentication Service API
//	@version		0.1.0
//	@description	Invite-gated session authentication for the content studio.
//	@description
//	@description				Accounts are created from invite codes. Sessions are bearer tokens valid for 24 hours and can be revoked at any time.
//
//	@contact.name				Wealth Studio Platform Team
//
//	@host						localhost:8080
//	@BasePath					/
//
//	@schemes					http https
//
//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Session token. Format: "Bearer {token}".
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

// session requires a live session; admin additionally requires the admin role.
func (r *Router) session() httpx.Middleware {
	return httpx.RequireSession(SessionAuthenticator{AuthService: r.AuthService})
}

func (r *Router) admin() httpx.Middleware {
	return httpx.RequireRole(string(domain.RoleAdmin))
}

func (r *Router) registerAccount() {
	h := &AccountHandler{AuthService: r.AuthService}

	// POST /register - strict rate limit by IP (public signup endpoint)
	r.Mux.Handle("POST /register",
		httpx.Chain(http.HandlerFunc(h.HandleRegister),
			httpx.RateLimitByIP(r.limits.Strict),
		),
	)

	// POST /login - strict rate limit by IP + email to slow credential stuffing
	r.Mux.Handle("POST /login",
		httpx.Chain(http.HandlerFunc(h.HandleLogin),
			httpx.RateLimitByIPAndJSONField(r.limits.Strict, "email"),
		),
	)

	// GET /validate - called by downstream services on every request; its
	// profile is off unless RATELIMIT_VALIDATE_* is set
	r.Mux.Handle("GET /validate",
		httpx.Chain(http.HandlerFunc(h.HandleValidate),
			httpx.RateLimitByIP(r.limits.Validate),
		),
	)

	// POST /logout - always 200, so neither session middleware nor a limiter
	r.Mux.HandleFunc("POST /logout", h.HandleLogout)

	r.Mux.Handle("POST /change-password",
		httpx.Chain(http.HandlerFunc(h.HandleChangePassword),
			r.session(),
			httpx.RateLimitByUser(r.limits.Moderate),
		),
	)

	r.Mux.Handle("GET /sessions",
		httpx.Chain(http.HandlerFunc(h.HandleListSessions),
			r.session(),
			httpx.RateLimitByUser(r.limits.Lenient),
		),
	)
}

func (r *Router) registerInvites() {
	h := &InviteHandler{AuthService: r.AuthService}

	// GET /check-invite/{code} - public, hit by the signup page on every keystroke
	r.Mux.Handle("GET /check-invite/{code}",
		httpx.Chain(http.HandlerFunc(h.HandleCheck),
			httpx.RateLimitByIP(r.limits.Public),
		),
	)

	r.Mux.Handle("POST /create-invite",
		httpx.Chain(http.HandlerFunc(h.HandleCreate),
			r.session(),
			r.admin(),
			httpx.RateLimitByUser(r.limits.Moderate),
		),
	)
	r.Mux.Handle("GET /invites",
		httpx.Chain(http.HandlerFunc(h.HandleList),
			r.session(),
			r.admin(),
			httpx.RateLimitByUser(r.limits.Moderate),
		),
	)
	r.Mux.Handle("POST /invites/{code}/deactivate",
		httpx.Chain(http.HandlerFunc(h.HandleDeactivate),
			r.session(),
			r.admin(),
			httpx.RateLimitByUser(r.limits.Moderate),
		),
	)
}

func (r *Router) registerAdmin() {
	h := &AdminHandler{AuthService: r.AuthService}

	r.Mux.Handle("POST /users/{id}/active",
		httpx.Chain(http.HandlerFunc(h.HandleSetUserActive),
			r.session(),
			r.admin(),
			httpx.RateLimitByUser(r.limits.Moderate),
		),
	)
	r.Mux.Handle("GET /access-logs",
		httpx.Chain(http.HandlerFunc(h.HandleListAccessLogs),
			r.session(),
			r.admin(),
			httpx.RateLimitByUser(r.limits.Moderate),
		),
	)
}

func (r *Router) registerBootstrap() {
	// POST /bootstrap - very strict rate limit by IP (one-time setup endpoint)
	bootstrapHandler := &BootstrapHandler{BootstrapService: r.BootstrapService}
	r.Mux.Handle("POST /bootstrap",
		httpx.Chain(bootstrapHandler,
			httpx.RateLimitByIP(r.limits.Strict),
		),
	)
}

func (r *Router) registerSystem() {
	// Health check endpoints - lenient rate limits (monitoring systems may poll frequently)
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(r.limits.Lenient),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.db),
			httpx.RateLimitByIP(r.limits.Lenient),
		),
	)
}
