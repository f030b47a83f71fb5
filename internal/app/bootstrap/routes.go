// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"
	"time"

	accountfeature "github.com/bloomcycle/bloom/internal/app/features/account"
	calendarfeature "github.com/bloomcycle/bloom/internal/app/features/calendarpage"
	checkinfeature "github.com/bloomcycle/bloom/internal/app/features/checkin"
	cyclesfeature "github.com/bloomcycle/bloom/internal/app/features/cycles"
	errorsfeature "github.com/bloomcycle/bloom/internal/app/features/errors"
	healthfeature "github.com/bloomcycle/bloom/internal/app/features/health"
	homefeature "github.com/bloomcycle/bloom/internal/app/features/home"
	loginfeature "github.com/bloomcycle/bloom/internal/app/features/login"
	logoutfeature "github.com/bloomcycle/bloom/internal/app/features/logout"
	onboardingfeature "github.com/bloomcycle/bloom/internal/app/features/onboarding"
	signupfeature "github.com/bloomcycle/bloom/internal/app/features/signup"
	"github.com/bloomcycle/bloom/internal/app/prompts"
	appresources "github.com/bloomcycle/bloom/internal/app/resources"
	checkinstore "github.com/bloomcycle/bloom/internal/app/store/checkins"
	"github.com/bloomcycle/bloom/internal/app/store/loginattempts"
	promptstore "github.com/bloomcycle/bloom/internal/app/store/prompts"
	userstore "github.com/bloomcycle/bloom/internal/app/store/users"
	"github.com/bloomcycle/bloom/internal/app/system/apilimit"
	"github.com/bloomcycle/bloom/internal/app/system/auth"
	"github.com/bloomcycle/bloom/internal/app/system/dailyprompt"
	"github.com/bloomcycle/bloom/internal/app/system/metrics"
	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/middleware"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

// BuildHandler constructs Bloom's root router.
//
// WAFFLE calls this after configuration, DB connection, schema setup and
// Startup. Page routes run behind sessions and CSRF; the JSON routes under
// /api share the session but are additionally rate limited per client.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	db := deps.MongoDatabase

	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	// Fresh user data on every request, so onboarding and disabled accounts
	// take effect immediately.
	sessionMgr.SetUserFetcher(userstore.NewFetcher(db, logger))

	// Dev mode enables template reloading.
	eng := templates.New(coreCfg.Env == "dev")
	if err := eng.Boot(logger); err != nil {
		logger.Error("template engine boot failed", zap.Error(err))
		return nil, err
	}
	templates.UseEngine(eng, logger)

	errLog := errorsfeature.NewErrorLogger(logger)
	errorsHandler := errorsfeature.NewHandler()
	clock := appClock(appCfg)
	m := metrics.New()

	limiter := apiLimiter
	if limiter == nil {
		limiter = apilimit.New(float64(appCfg.APIRatePerSecond), appCfg.APIBurst, appCfg.APIIdleEvict)
	}
	limiter.OnReject = m.RateLimited

	checkIns := checkinstore.New(db)
	bank := prompts.NewBank(promptstore.New(db), time.Now().UnixNano(), logger)
	promptLoader := dailyprompt.New(checkIns, bank, clock, logger)

	r := chi.NewRouter()

	// ─────────────────────────────────────────────────────────────────────────────
	// Global Middleware (applies to ALL routes)
	// ─────────────────────────────────────────────────────────────────────────────

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(m.Middleware)
	r.Use(chimw.Timeout(30 * time.Second))
	r.Use(middleware.CORSFromConfig(coreCfg))
	r.Use(middleware.SecurityHeadersFromConfig(coreCfg))

	// Session user, then one-shot flashes for full page loads.
	r.Use(sessionMgr.LoadSessionUser)
	r.Use(sessionMgr.LoadFlashes)

	csrfOpts := []csrf.Option{
		csrf.Secure(secure),
		csrf.Path("/"),
		csrf.CookieName("bloom_csrf"),
		csrf.SameSite(csrf.SameSiteLaxMode),
		csrf.ErrorHandler(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			logger.Warn("CSRF validation failed",
				zap.String("path", req.URL.Path),
				zap.String("method", req.Method),
				zap.String("reason", csrf.FailureReason(req).Error()),
			)
			if req.Header.Get("HX-Request") == "true" {
				w.Header().Set("HX-Redirect", "/login")
				w.WriteHeader(http.StatusForbidden)
				return
			}
			http.Error(w, "CSRF token invalid or missing", http.StatusForbidden)
		})),
	}
	if !secure {
		csrfOpts = append(csrfOpts, csrf.TrustedOrigins([]string{
			"localhost:8080",
			"localhost:3000",
			"127.0.0.1:8080",
			"127.0.0.1:3000",
		}))
	}
	if appCfg.SessionDomain != "" {
		csrfOpts = append(csrfOpts, csrf.Domain(appCfg.SessionDomain))
	}
	r.Use(csrf.Protect([]byte(appCfg.CSRFKey), csrfOpts...))

	// Today's check-in card for signed-in page loads.
	r.Use(promptLoader.Middleware)

	// ─────────────────────────────────────────────────────────────────────────────
	// Probes, metrics and assets
	// ─────────────────────────────────────────────────────────────────────────────

	healthHandler := healthfeature.NewHandler(deps.MongoClient, appCfg.Version, logger)
	if taskRunner != nil {
		healthHandler.AddCheck("jobs", taskRunner.Healthy)
	}
	r.Mount("/health", healthfeature.Routes(healthHandler))
	healthfeature.MountRootEndpoints(r, healthHandler)

	r.Handle("/metrics", m.Handler())

	// /assets/* serves embedded assets (bundled into the binary)
	r.Handle("/assets/*", appresources.AssetsHandler("/assets"))

	// ─────────────────────────────────────────────────────────────────────────────
	// Public pages and authentication
	// ─────────────────────────────────────────────────────────────────────────────

	homeHandler := homefeature.NewHandler(logger)
	r.Mount("/", homefeature.Routes(homeHandler))

	signupHandler := signupfeature.NewHandler(db, sessionMgr, errLog, logger)
	r.Mount("/signup", signupfeature.Routes(signupHandler))

	// Failed-attempt lockout (nil if disabled)
	var attempts *loginattempts.Store
	if appCfg.LoginLockoutEnabled {
		attempts = loginattempts.New(db, loginattempts.Policy{
			MaxFailures: appCfg.LoginMaxFailures,
			Window:      appCfg.LoginWindow,
			Lockout:     appCfg.LoginLockout,
		})
	}
	loginHandler := loginfeature.NewHandler(db, sessionMgr, attempts, errLog, m, logger)
	r.Mount("/login", loginfeature.Routes(loginHandler))

	logoutHandler := logoutfeature.NewHandler(sessionMgr, logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler, sessionMgr))

	// ─────────────────────────────────────────────────────────────────────────────
	// Tracker pages (signed in)
	// ─────────────────────────────────────────────────────────────────────────────

	onboardingHandler := onboardingfeature.NewHandler(db, clock, errLog, logger)
	r.Mount("/onboarding", onboardingfeature.Routes(onboardingHandler, sessionMgr))

	calendarHandler := calendarfeature.NewHandler(db, sessionMgr, clock, predictionConfig(appCfg), m, errLog, logger)
	r.Mount("/calendar", calendarfeature.Routes(calendarHandler, sessionMgr))

	cyclesHandler := cyclesfeature.NewHandler(db, sessionMgr, clock, m, errLog, logger)
	r.Mount("/cycles", cyclesfeature.Routes(cyclesHandler, sessionMgr))

	checkinHandler := checkinfeature.NewHandler(db, sessionMgr, promptLoader, clock, m, errLog, logger)
	r.Mount("/checkin", checkinfeature.Routes(checkinHandler, sessionMgr))

	accountHandler := accountfeature.NewHandler(db, sessionMgr, errLog, logger)
	r.Mount("/settings", accountfeature.Routes(accountHandler, sessionMgr))

	// ─────────────────────────────────────────────────────────────────────────────
	// JSON API (session auth, CSRF header, per-client rate limit)
	// ─────────────────────────────────────────────────────────────────────────────

	r.Route("/api", func(api chi.Router) {
		api.Use(limiter.Middleware)
		api.Mount("/calendar", calendarfeature.APIRoutes(calendarHandler, sessionMgr))
		api.Mount("/checkin", checkinfeature.APIRoutes(checkinHandler, sessionMgr))
	})

	// Error pages
	r.Get("/forbidden", errorsHandler.Forbidden)
	r.Get("/unauthorized", errorsHandler.Unauthorized)
	r.NotFound(errorsHandler.NotFound)
	r.MethodNotAllowed(errorsHandler.MethodNotAllowed)

	logger.Info("routes mounted",
		zap.Bool("login_lockout", attempts != nil),
		zap.Int("api_rate_per_second", appCfg.APIRatePerSecond),
	)
	return r, nil
}
