package presence

import (
	"context"
	"time"
)

const DefaultSweepInterval = 30 * time.Second

// Sweeper prunes stale guests in every room on a fixed interval.
type Sweeper struct {
	tracker  *Tracker
	interval time.Duration
}

func NewSweeper(tracker *Tracker, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = DefaultSweepInterval
	}
	return &Sweeper{tracker: tracker, interval: interval}
}

// Run blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pruning pass and returns how many guests were removed.
func (s *Sweeper) Sweep(ctx context.Context) int64 {
	log := s.tracker.log

	roomIDs, err := s.tracker.store.RoomIDsWithGuests(ctx)
	if err != nil {
		log.Error().Err(err).Msg("sweep: listing rooms failed")
		return 0
	}

	var total int64
	for _, id := range roomIDs {
		n, err := s.tracker.PruneStaleGuests(ctx, id, 0)
		if err != nil {
			log.Error().Err(err).Str("room", id.String()).Msg("sweep: prune failed")
			continue
		}
		total += n
	}
	return total
}
