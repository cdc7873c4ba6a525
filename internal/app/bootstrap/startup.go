// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/peerhub/peerhub/internal/app/store/audit"
	messagestore "github.com/peerhub/peerhub/internal/app/store/messages"
	userstore "github.com/peerhub/peerhub/internal/app/store/users"
	"github.com/peerhub/peerhub/internal/app/system/auditlog"
	"github.com/peerhub/peerhub/internal/app/system/notify"
	"github.com/peerhub/peerhub/internal/app/system/tasks"
	"github.com/peerhub/peerhub/internal/app/system/wsfeed"
	"github.com/peerhub/peerhub/internal/app/workflows/relationship"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Long-lived background pieces created in Startup, shared with BuildHandler
// and torn down in Shutdown.
var (
	feedHub     *wsfeed.Hub
	feedCancel  context.CancelFunc
	sweepRunner *tasks.Runner
)

// Startup runs one-time application initialization after DB connections and
// schema setup are complete, but before the HTTP handler is built. PeerHub
// starts the live notification feed (hub plus change-stream watcher) and
// the background sweep that repairs one-sided pending friend requests.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	feedHub = wsfeed.NewHub(logger)
	go feedHub.Run()

	feedCtx, cancel := context.WithCancel(context.Background())
	feedCancel = cancel
	go feedHub.Watch(feedCtx, messagestore.New(deps.MongoDatabase))

	auditLogger := auditlog.New(audit.New(deps.MongoDatabase), logger, auditlog.Config{
		Auth:     appCfg.AuditLogAuth,
		Workflow: appCfg.AuditLogWorkflow,
	})
	notifier := notify.NewDispatcher(messagestore.New(deps.MongoDatabase), logger)
	ledger := relationship.New(userstore.New(deps.MongoDatabase), deps.MongoClient, notifier, auditLogger, logger)

	sweepRunner = tasks.NewRunner(logger)
	if err := sweepRunner.Add(tasks.PendingSweepJob(ledger, logger, appCfg.PendingSweepInterval)); err != nil {
		return err
	}
	sweepRunner.Start()

	return nil
}
