package session

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Refresher periodically revalidates the held token so a revoked session is
// noticed between user actions, not only on the next failing request.
type Refresher struct {
	cron  *cron.Cron
	store *Store
	log   zerolog.Logger
}

// NewRefresher schedules Revalidate every interval. Call Start to begin.
func NewRefresher(store *Store, interval time.Duration, log zerolog.Logger) (*Refresher, error) {
	r := &Refresher{
		cron:  cron.New(),
		store: store,
		log:   log,
	}

	_, err := r.cron.AddFunc(fmt.Sprintf("@every %s", interval), r.run)
	if err != nil {
		return nil, fmt.Errorf("session: schedule refresher: %w", err)
	}
	return r, nil
}

func (r *Refresher) run() {
	ctx, cancel := context.WithTimeout(context.Background(), revalidateTimeout)
	defer cancel()

	if err := r.store.Revalidate(ctx); err != nil {
		r.log.Warn().Err(err).Msg("scheduled token revalidation failed")
	}
}

// Start begins the revalidation schedule.
func (r *Refresher) Start() { r.cron.Start() }

// Stop halts the schedule and waits for a running revalidation to finish.
func (r *Refresher) Stop() {
	ctx := r.cron.Stop()
	<-ctx.Done()
}
