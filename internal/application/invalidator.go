package application

import (
	"context"

	"go.uber.org/multierr"
)

// CacheInvalidator は開催枠の残席が変わったことを通知する
type CacheInvalidator interface {
	Invalidate(ctx context.Context, scheduleID string) error
}

// Invalidators は複数の CacheInvalidator へ順に通知する
// 一部が失敗しても残りへの通知は続ける
type Invalidators []CacheInvalidator

// Invalidate implements CacheInvalidator
func (is Invalidators) Invalidate(ctx context.Context, scheduleID string) error {
	var errs error
	for _, inv := range is {
		if inv == nil {
			continue
		}
		errs = multierr.Append(errs, inv.Invalidate(ctx, scheduleID))
	}
	return errs
}
