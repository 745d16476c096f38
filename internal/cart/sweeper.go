package cart

import (
	"context"
	"log"
	"time"
)

// Sweeper periodically deletes carts that were deactivated and have passed
// their expiry. It runs outside the request path and never touches active
// carts.
type Sweeper struct {
	repo     *Repository
	interval time.Duration
}

func NewSweeper(repo *Repository, interval time.Duration) *Sweeper {
	return &Sweeper{repo: repo, interval: interval}
}

// Run blocks until the context is cancelled, sweeping once per interval.
func (s *Sweeper) Run(ctx context.Context) {
	log.Println("[CART] [INFO] expiry sweeper started, interval:", s.interval)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			log.Println("[CART] [INFO] expiry sweeper stopped")
			return
		case <-ticker.C:
			count, err := s.repo.PurgeExpired(ctx)
			if err != nil {
				log.Println("[CART] [ERROR] expiry sweep failed:", err)
				continue
			}
			if count > 0 {
				log.Println("[CART] [INFO] expiry sweep removed carts:", count)
			}
		}
	}
}
