package service

import (
    "context"
    "errors"
    "testing"

    "github.com/labstack/gommon/log"
    "github.com/stretchr/testify/assert"

    "github.com/iliyamo/campus-events/internal/model"
)

type fakeExpirer struct {
    batches [][]model.Booking
    err     error
    calls   int
}

func (f *fakeExpirer) ExpirePending(ctx context.Context, limit int) ([]model.Booking, error) {
    f.calls++
    if len(f.batches) == 0 {
        return nil, f.err
    }
    b := f.batches[0]
    f.batches = f.batches[1:]
    return b, nil
}

func TestSweepDrainsFullBatches(t *testing.T) {
    full := make([]model.Booking, sweepBatch)
    f := &fakeExpirer{batches: [][]model.Booking{full, {{ID: 1}}}}
    s := &ExpirySweeper{Repo: f, Logger: log.New("test")}
    assert.Equal(t, sweepBatch+1, s.Sweep(context.Background()))
    assert.Equal(t, 2, f.calls)
}

func TestSweepStopsOnError(t *testing.T) {
    f := &fakeExpirer{err: errors.New("db down")}
    s := &ExpirySweeper{Repo: f, Logger: log.New("test")}
    assert.Equal(t, 0, s.Sweep(context.Background()))
    assert.Equal(t, 1, f.calls)
}
