// internal/app/system/wsfeed/watcher.go
package wsfeed

import (
	"context"
	"time"

	messagestore "github.com/peerhub/peerhub/internal/app/store/messages"
	"github.com/peerhub/peerhub/internal/domain/models"
	"go.uber.org/zap"
)

// Watch tails the messages change stream and delivers each insert to the
// hub. It reconnects with a flat backoff until ctx is canceled; on
// deployments without change stream support (standalone mongod) it logs
// once and gives up, leaving the inbox poll as the only delivery path.
func (h *Hub) Watch(ctx context.Context, messages *messagestore.Store) {
	const backoff = 5 * time.Second

	for {
		stream, err := messages.Watch(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			h.log.Warn("message change stream unavailable, live feed disabled",
				zap.Error(err),
				zap.Duration("retry_in", backoff),
			)
			select {
			case <-ctx.Done():
				return
			case <-time.After(backoff):
				continue
			}
		}

		h.consume(ctx, stream)
		if ctx.Err() != nil {
			return
		}
	}
}

func (h *Hub) consume(ctx context.Context, stream interface {
	Next(ctx context.Context) bool
	Decode(v interface{}) error
	Err() error
	Close(ctx context.Context) error
}) {
	defer stream.Close(context.Background())

	for stream.Next(ctx) {
		var change struct {
			FullDocument models.Message `bson:"fullDocument"`
		}
		if err := stream.Decode(&change); err != nil {
			h.log.Warn("failed to decode change stream event", zap.Error(err))
			continue
		}
		h.Deliver(change.FullDocument)
	}

	if err := stream.Err(); err != nil && ctx.Err() == nil {
		h.log.Warn("message change stream ended", zap.Error(err))
	}
}
