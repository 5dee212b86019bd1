// Package tasks registers the recurring maintenance jobs.
package tasks

import (
	"context"
	"time"

	"github.com/shashiranjanraj/giftkart/pkg/logger"
	"github.com/shashiranjanraj/giftkart/pkg/schedule"
)

// ExpireInterval is how often overdue unpaid orders are swept.
const ExpireInterval = 5 * time.Minute

// Expirer cancels orders whose payment window has passed.
type Expirer interface {
	ExpireOverdue(ctx context.Context) (int, error)
}

// Register adds the order expiry sweep to s.
func Register(s *schedule.Scheduler, orders Expirer) {
	s.Every(ExpireInterval).Name("orders:expire").WithoutOverlapping().Run(func(ctx context.Context) error {
		n, err := orders.ExpireOverdue(ctx)
		if err != nil {
			return err
		}
		if n > 0 {
			logger.Info("tasks: expired unpaid orders", "count", n)
		}
		return nil
	})
}
