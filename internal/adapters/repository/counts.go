package repository

import (
	"context"
	"sync"
	"time"

	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/internal/domain/model"
	"github.com/TakumaMaruyama/hamasui-kirokukai-sub000/pkg/metrics"
)

// countsUpdater periodically publishes entity counts as gauges.
type countsUpdater struct {
	stopChan chan struct{}
	once     sync.Once
	wg       sync.WaitGroup
}

func startCountsUpdater(ctx context.Context, interval time.Duration, count func(context.Context) (model.Counts, error)) *countsUpdater {
	u := &countsUpdater{stopChan: make(chan struct{})}
	if interval <= 0 {
		return u
	}
	u.wg.Add(1)
	go func() {
		defer u.wg.Done()
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-u.stopChan:
				return
			case <-ticker.C:
				if c, err := count(ctx); err == nil {
					publishCounts(c)
				}
			}
		}
	}()
	return u
}

func (u *countsUpdater) stop() {
	u.once.Do(func() { close(u.stopChan) })
	u.wg.Wait()
}

func publishCounts(c model.Counts) {
	metrics.UpdateStoreRecords("athletes", c.Athletes)
	metrics.UpdateStoreRecords("meets", c.Meets)
	metrics.UpdateStoreRecords("events", c.Events)
	metrics.UpdateStoreRecords("results", c.Results)
}
