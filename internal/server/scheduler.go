package server

import (
	"context"
	"log"
	"time"

	"github.com/gorhill/cronexpr"

	"github.com/mohammad-safakhou/newsbot/internal/cache"
	"github.com/mohammad-safakhou/newsbot/internal/service"
)

// Scheduler warms the headline cache on a cron schedule so interactive
// requests rarely hit the news provider cold. A redis lock keeps replicas
// from refreshing at the same time.
type Scheduler struct {
	Svc        *service.Service
	Cache      *cache.Cache
	Cron       string
	Categories []string
	Limit      int
	Stop       chan struct{}

	logger *log.Logger
}

func (s *Scheduler) Start() {
	if s.logger == nil {
		s.logger = log.New(log.Writer(), "[SCHED] ", log.LstdFlags)
	}
	if _, err := cronexpr.Parse(s.Cron); err != nil {
		s.logger.Printf("invalid cron %q, scheduler disabled: %v", s.Cron, err)
		return
	}
	ticker := time.NewTicker(time.Minute)
	last := time.Now()
	go func() {
		for {
			select {
			case <-s.Stop:
				ticker.Stop()
				return
			case now := <-ticker.C:
				if isDue(s.Cron, last, now) {
					last = now
					s.tick()
				}
			}
		}
	}()
}

func (s *Scheduler) tick() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if !s.Cache.AcquireLock(ctx, "headlines-warm", 2*time.Minute) {
		return
	}
	defer s.Cache.ReleaseLock(ctx, "headlines-warm")
	s.logger.Printf("warming headline cache")
	s.Svc.WarmHeadlines(ctx, s.Categories, s.Limit)
}

// isDue reports whether the cron expression fires in the (last, now] window.
func isDue(spec string, last, now time.Time) bool {
	expr, err := cronexpr.Parse(spec)
	if err != nil {
		return false
	}
	next := expr.Next(last)
	return !next.IsZero() && !next.After(now)
}
