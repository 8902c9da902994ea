package http

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-waitlist-api/internal/application/auth"
	"github.com/go-waitlist-api/internal/application/lookup"
	"github.com/go-waitlist-api/internal/application/newsletter"
	"github.com/go-waitlist-api/internal/application/notify"
	"github.com/go-waitlist-api/internal/application/ranking"
	"github.com/go-waitlist-api/internal/application/verification"
	"github.com/go-waitlist-api/internal/application/waitlist"
	"github.com/go-waitlist-api/internal/config"
	jwtinfra "github.com/go-waitlist-api/internal/infrastructure/jwt"
	"github.com/go-waitlist-api/internal/pkg/refcode"
	"github.com/go-waitlist-api/internal/transport/http/handler"
	appmiddleware "github.com/go-waitlist-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// Deps holds all infrastructure dependencies for the router.
type Deps struct {
	EntrantRepo      EntrantRepository
	IdentityRepo     IdentityRepository
	SessionRepo      SessionRepository
	VerificationRepo VerificationRepository
	SubscriberRepo   SubscriberRepository
	Mailer           Mailer
	JWTProvider      *jwtinfra.Provider
	Hub              *notify.Hub
	// Publishers receive EMAIL_VERIFIED in addition to Hub.
	Publishers []notify.Publisher
	// WindowLimiter guards POST /waitlist; nil falls back to an in-process bucket.
	WindowLimiter appmiddleware.WindowLimiter
	// DomainChecker is nil unless MX validation is enabled.
	DomainChecker DomainChecker
}

// NewRouter builds and returns the application router. Background work
// started here stops when ctx is done.
func NewRouter(ctx context.Context, cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	hub := deps.Hub
	if hub == nil {
		hub = notify.NewHub()
	}
	publisher := append(notify.Fanout{hub}, deps.Publishers...)

	authSvc := auth.NewService(auth.ServiceDeps{
		IdentityRepo:     deps.IdentityRepo,
		SessionRepo:      deps.SessionRepo,
		VerificationRepo: deps.VerificationRepo,
		Mailer:           deps.Mailer,
		JWTProvider:      deps.JWTProvider,
		SiteURL:          cfg.SiteURL,
		LinkTTL:          cfg.ActionLinkTTL,
		OTPTTL:           cfg.OTPTTL,
		RefreshTokenDur:  cfg.RefreshTokenExpiry,
	})
	waitlistSvc := waitlist.NewService(waitlist.ServiceDeps{
		EntrantRepo:   deps.EntrantRepo,
		Links:         authSvc,
		Mailer:        deps.Mailer,
		DomainChecker: deps.DomainChecker,
		Codes:         refcode.New(),
	})
	verificationSvc := verification.NewService(verification.ServiceDeps{
		EntrantRepo:  deps.EntrantRepo,
		Hub:          hub,
		Publisher:    publisher,
		PollInterval: cfg.PollInterval,
		WaitWindow:   cfg.WaitWindow,
	})
	rankingSvc := ranking.NewService(deps.EntrantRepo, cfg.LeaderboardSize)
	lookupSvc := lookup.NewService(lookup.ServiceDeps{
		EntrantRepo: deps.EntrantRepo,
		OTP:         authSvc,
		Stats:       rankingSvc,
	})
	newsletterSvc := newsletter.NewService(deps.SubscriberRepo)

	healthH := handler.NewHealthHandler()
	waitlistH := handler.NewWaitlistHandler(waitlistSvc, verificationSvc)
	authH := handler.NewAuthHandler(authSvc, verificationSvc, cfg.SiteURL, cfg.VerifyOnRedeem)
	lookupH := handler.NewLookupHandler(lookupSvc)
	statsH := handler.NewStatsHandler(rankingSvc)
	newsletterH := handler.NewNewsletterHandler(newsletterSvc)

	// 5 requests/second, burst of 10, applied to sensitive public endpoints.
	sensitiveRL := appmiddleware.NewRateLimiter(ctx, rate.Limit(5), 10)

	// Each event stream holds a poller for up to the wait window.
	streamRL := appmiddleware.NewStreamLimiter(3, time.Minute)

	var signupRL func(http.Handler) http.Handler
	if deps.WindowLimiter != nil {
		signupRL = appmiddleware.SlidingWindow(deps.WindowLimiter, cfg.RateLimitTimeout)
	} else {
		per := cfg.RateLimitWindow / time.Duration(max(cfg.RateLimitRequests, 1))
		signupRL = appmiddleware.NewRateLimiter(ctx, rate.Every(per), cfg.RateLimitRequests).Limit
	}
	authMw := appmiddleware.Auth(authSvc)

	// ── Public routes (no auth) ──────────────────────────────────────────
	r.Get("/health-check/{action}", healthH.Ping)
	r.Post("/health-check/{action}", healthH.Ping)

	r.With(signupRL).Post("/waitlist", waitlistH.Join)
	r.With(sensitiveRL.Limit).Get("/waitlist/status", waitlistH.Status)
	r.With(sensitiveRL.Limit, streamRL.Limit).Get("/waitlist/events", waitlistH.Events)

	r.With(sensitiveRL.Limit).Post("/lookup", lookupH.Request)
	r.With(sensitiveRL.Limit).Post("/lookup/verify", lookupH.Verify)

	r.With(sensitiveRL.Limit).Get("/auth/confirm", authH.Confirm)
	r.With(sensitiveRL.Limit).Post("/auth/refresh", authH.Refresh)

	r.Get("/leaderboard", statsH.Leaderboard)

	r.With(sensitiveRL.Limit).Post("/newsletter", newsletterH.Subscribe)
	r.Get("/newsletter/unsubscribe", newsletterH.Unsubscribe)

	// ── Authenticated routes ─────────────────────────────────────────────
	r.Group(func(r chi.Router) {
		r.Use(authMw)

		r.Get("/auth/status", authH.Status)
		r.Post("/auth/verify-user", authH.VerifyUser)
		r.Get("/me/stats", statsH.Me)
	})

	return r
}
