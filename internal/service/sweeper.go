package service

import (
    "context"
    "time"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/campus-events/internal/model"
)

// PendingExpirer releases lapsed seat holds.
type PendingExpirer interface {
    ExpirePending(ctx context.Context, limit int) ([]model.Booking, error)
}

// sweepBatch bounds the work done per pass.
const sweepBatch = 200

// ExpirySweeper periodically expires PENDING bookings whose payment
// window closed and returns their seats to the pool.
type ExpirySweeper struct {
    Repo     PendingExpirer
    Interval time.Duration
    Logger   echo.Logger
}

// Run sweeps until ctx is cancelled.
func (s *ExpirySweeper) Run(ctx context.Context) {
    t := time.NewTicker(s.Interval)
    defer t.Stop()
    for {
        s.Sweep(ctx)
        select {
        case <-ctx.Done():
            return
        case <-t.C:
        }
    }
}

// Sweep drains all currently expired holds and returns how many were
// released.
func (s *ExpirySweeper) Sweep(ctx context.Context) int {
    total := 0
    for {
        expired, err := s.Repo.ExpirePending(ctx, sweepBatch)
        total += len(expired)
        for _, b := range expired {
            s.Logger.Infof("expiry: booking %d released %d seats of event %d", b.ID, b.Seats, b.EventID)
        }
        if err != nil {
            if ctx.Err() == nil {
                s.Logger.Errorf("expiry: sweep failed: %v", err)
            }
            return total
        }
        if len(expired) < sweepBatch {
            return total
        }
    }
}
