package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	otpapp "github.com/share-gate-api/internal/application/otp"
	shareapp "github.com/share-gate-api/internal/application/share"
	"github.com/share-gate-api/internal/config"
	"github.com/share-gate-api/internal/transport/http/handler"
	appmiddleware "github.com/share-gate-api/internal/transport/http/middleware"
	"golang.org/x/time/rate"
)

// NewRouter builds and returns the application router.
func NewRouter(cfg *config.Config, deps *Deps) http.Handler {
	r := chi.NewRouter()
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(appmiddleware.ShareCORS(cfg.AllowedOrigins))

	// 5 requests/second, burst of 10 — a blunt brake in front of the public
	// OTP endpoint, on top of the per-email issuance window.
	sensitiveRL := appmiddleware.NewRateLimiter(rate.Limit(5), 10)

	limiter := otpapp.NewLimiter(deps.OtpRepo, cfg.RateWindow, cfg.RateMaxRequests)
	otpSvc := otpapp.NewService(otpapp.ServiceDeps{
		Otps:    deps.OtpRepo,
		Mailer:  deps.Mailer,
		Signer:  deps.JWTProvider,
		Limiter: limiter,
		OtpTTL:  cfg.OtpTTL,
	})
	shareSvc := shareapp.NewService(deps.MaterialRepo, deps.FolderRepo, deps.S3Store)

	healthH := handler.NewHealthHandler()
	otpH := handler.NewOtpHandler(otpSvc)
	sharedH := handler.NewSharedHandler(shareSvc)

	// ── Public routes ────────────────────────────────────────────────────
	r.Get("/health-check/{action}", healthH.Ping)
	r.With(sensitiveRL.Limit).Post("/otp", otpH.Action)

	// ── Grant-protected routes ───────────────────────────────────────────
	r.Group(func(r chi.Router) {
		r.Use(appmiddleware.Grant(deps.JWTProvider))

		r.Get("/shared/{type}/{id}", sharedH.View)
	})

	return r
}
