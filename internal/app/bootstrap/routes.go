// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	activityfeature "github.com/peerhub/peerhub/internal/app/features/activity"
	authgooglefeature "github.com/peerhub/peerhub/internal/app/features/authgoogle"
	collaborationsfeature "github.com/peerhub/peerhub/internal/app/features/collaborations"
	friendsfeature "github.com/peerhub/peerhub/internal/app/features/friends"
	healthfeature "github.com/peerhub/peerhub/internal/app/features/health"
	inboxfeature "github.com/peerhub/peerhub/internal/app/features/inbox"
	listingsfeature "github.com/peerhub/peerhub/internal/app/features/listings"
	loginfeature "github.com/peerhub/peerhub/internal/app/features/login"
	logoutfeature "github.com/peerhub/peerhub/internal/app/features/logout"
	reviewersfeature "github.com/peerhub/peerhub/internal/app/features/reviewers"
	usersfeature "github.com/peerhub/peerhub/internal/app/features/users"
	"github.com/peerhub/peerhub/internal/app/store/audit"
	requeststore "github.com/peerhub/peerhub/internal/app/store/collabrequests"
	collaborationstore "github.com/peerhub/peerhub/internal/app/store/collaborations"
	listingstore "github.com/peerhub/peerhub/internal/app/store/listings"
	messagestore "github.com/peerhub/peerhub/internal/app/store/messages"
	"github.com/peerhub/peerhub/internal/app/store/oauthstate"
	reviewerappstore "github.com/peerhub/peerhub/internal/app/store/reviewerapps"
	userstore "github.com/peerhub/peerhub/internal/app/store/users"
	"github.com/peerhub/peerhub/internal/app/system/auditlog"
	"github.com/peerhub/peerhub/internal/app/system/auth"
	"github.com/peerhub/peerhub/internal/app/system/notify"
	"github.com/peerhub/peerhub/internal/app/workflows/listingcollab"
	"github.com/peerhub/peerhub/internal/app/workflows/relationship"
	"github.com/peerhub/peerhub/internal/app/workflows/reviewerapp"
	"github.com/dalemusser/waffle/config"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// BuildHandler constructs the root HTTP handler (router) for this WAFFLE app.
//
// WAFFLE calls this after configuration, DB connections, schema setup, and
// the Startup hook have completed, so the feed hub and background runner
// already exist. BuildHandler wires the stores, workflows, and feature
// routers on top of them.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"
	sessionMgr, err := auth.NewSessionManager(appCfg.SessionKey, appCfg.SessionName, appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}

	db := deps.MongoDatabase

	// Stores
	users := userstore.New(db)
	listings := listingstore.New(db)
	requests := requeststore.New(db)
	collabs := collaborationstore.New(db)
	apps := reviewerappstore.New(db)
	messages := messagestore.New(db)
	auditStore := audit.New(db)
	stateStore := oauthstate.New(db)

	// Cross-cutting services
	auditLogger := auditlog.New(auditStore, logger, auditlog.Config{
		Auth:     appCfg.AuditLogAuth,
		Workflow: appCfg.AuditLogWorkflow,
	})
	notifier := notify.NewDispatcher(messages, logger)

	// Workflows
	ledger := relationship.New(users, deps.MongoClient, notifier, auditLogger, logger)
	collabWF := listingcollab.New(listings, requests, collabs, deps.MongoClient, notifier, auditLogger, logger)
	reviewerWF := reviewerapp.New(apps, users, deps.MongoClient, notifier, auditLogger, logger)

	r := chi.NewRouter()

	// Request-scoped correlation id, carried into every audit event.
	r.Use(correlationID)

	// Global auth middleware: loads SessionUser into context if logged in.
	r.Use(sessionMgr.LoadSessionUser)

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.MongoClient, feedHub, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	// Prometheus metrics
	r.Handle("/metrics", promhttp.Handler())

	// Authentication
	loginHandler := loginfeature.NewHandler(users, sessionMgr, auditLogger, logger)
	r.Mount("/", loginfeature.Routes(loginHandler))

	logoutHandler := logoutfeature.NewHandler(sessionMgr, auditLogger, logger)
	r.Mount("/logout", logoutfeature.Routes(logoutHandler))

	googleHandler := authgooglefeature.NewHandler(users, stateStore, sessionMgr, auditLogger,
		appCfg.GoogleClientID, appCfg.GoogleClientSecret, appCfg.BaseURL, logger)
	r.Mount("/auth/google", authgooglefeature.Routes(googleHandler))

	// User directory
	usersHandler := usersfeature.NewHandler(ledger, logger)
	r.Mount("/users", usersfeature.Routes(usersHandler, sessionMgr))

	// Friend requests
	friendsHandler := friendsfeature.NewHandler(ledger, logger)
	r.Mount("/friends", friendsfeature.Routes(friendsHandler, sessionMgr))

	// Research listings
	listingsHandler := listingsfeature.NewHandler(listings, requests, collabs, auditLogger, logger)
	r.Mount("/listings", listingsfeature.Routes(listingsHandler, sessionMgr))

	// Collaboration requests
	collabHandler := collaborationsfeature.NewHandler(collabWF, logger)
	r.With(sessionMgr.RequireSignedIn).
		Post("/listings/{listingID}/collaboration-requests", collabHandler.ServeRequest)
	r.With(sessionMgr.RequireSignedIn).
		Delete("/listings/{listingID}/collaborators/{userID}", collabHandler.ServeRemove)
	r.Mount("/collaboration-requests", collaborationsfeature.RequestRoutes(collabHandler, sessionMgr))
	r.Mount("/collaborations", collaborationsfeature.ActiveRoutes(collabHandler, sessionMgr))

	// Reviewer applications
	reviewersHandler := reviewersfeature.NewHandler(reviewerWF, logger)
	r.Mount("/reviewer-applications", reviewersfeature.Routes(reviewersHandler, sessionMgr))

	// Notification inbox and live feed
	inboxHandler := inboxfeature.NewHandler(messages, notifier, feedHub, logger)
	r.Mount("/inbox", inboxfeature.Routes(inboxHandler, sessionMgr))

	// Admin activity log
	activityHandler := activityfeature.NewHandler(auditStore, logger)
	r.Mount("/activity", activityfeature.Routes(activityHandler, sessionMgr))

	return r, nil
}

// correlationID assigns each request an id (honoring X-Request-ID from the
// proxy), echoes it back, and stamps it into the context for audit events.
func correlationID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(auditlog.WithCorrelationID(r.Context(), id)))
	})
}
