// internal/app/system/tasks/jobs.go
package tasks

import (
	"context"
	"time"

	"github.com/peerhub/peerhub/internal/app/workflows/relationship"
	"go.uber.org/zap"
)

// PendingSweepJob reconciles one-sided pending friend entries left behind
// by partial writes on deployments without transactions. On replica sets
// the sweep normally finds nothing.
func PendingSweepJob(ledger *relationship.Ledger, logger *zap.Logger, interval time.Duration) Job {
	return Job{
		Name:     "pending-symmetry-sweep",
		Interval: interval,
		Run: func(ctx context.Context) error {
			ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
			defer cancel()

			repaired, err := ledger.SweepAsymmetricPending(ctx)
			if err != nil {
				return err
			}
			if repaired > 0 {
				logger.Info("pending sweep cleared one-sided entries",
					zap.Int64("repaired", repaired))
			}
			return nil
		},
	}
}
