package sweep

import (
	"context"
	"time"

	"go.uber.org/zap"

	"inigma/internal/domain"
	"inigma/internal/store"
)

// Sweeper purges records past their retention horizon: anything expired by
// its own TTL, plus anything older than the hard retention cap regardless
// of TTL, which bounds storage growth from abandoned permanent secrets.
type Sweeper struct {
	store     store.Store
	log       *zap.SugaredLogger
	retention time.Duration

	now func() time.Time
}

func New(st store.Store, log *zap.SugaredLogger, retention time.Duration) *Sweeper {
	return &Sweeper{store: st, log: log, retention: retention, now: time.Now}
}

// Sweep scans the store once and deletes every lapsed record, returning how
// many it removed. A failure on one record never aborts the rest; a record
// that disappears between the scan and the delete counts as already cleaned.
func (s *Sweeper) Sweep(ctx context.Context) (int, error) {
	now := s.now().Unix()
	cutoff := now - int64(s.retention.Seconds())

	var doomed []string
	err := s.store.Scan(ctx, func(rec domain.Secret) error {
		if rec.Expired(now) || rec.CreatedAt < cutoff {
			doomed = append(doomed, rec.ID)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	deleted := 0
	for _, id := range doomed {
		existed, err := s.store.Delete(ctx, id)
		if err != nil {
			s.log.Warnw("failed to sweep secret", "id", id, "error", err)
			continue
		}
		if existed {
			deleted++
		}
	}

	if deleted > 0 {
		s.log.Infow("sweep completed", "deleted", deleted)
	}
	return deleted, nil
}

// Run sweeps immediately and then on every tick until the context ends. It
// is independent of request handling and may overlap with live traffic.
func (s *Sweeper) Run(ctx context.Context, interval time.Duration) {
	if _, err := s.Sweep(ctx); err != nil {
		s.log.Errorw("sweep failed", "error", err)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Sweep(ctx); err != nil {
				s.log.Errorw("sweep failed", "error", err)
			}
		}
	}
}
