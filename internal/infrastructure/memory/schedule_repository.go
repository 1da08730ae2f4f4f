package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/sanosuguru/go-class-reservation/internal/domain/schedule"
)

// ScheduleRepository は schedule.Repository のメモリ実装
type ScheduleRepository struct {
	store *Store
}

// Create は新しい開催枠を作成する
func (r *ScheduleRepository) Create(ctx context.Context, sc *schedule.ClassSchedule) error {
	if err := sc.Validate(); err != nil {
		return err
	}
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if sc.ID == "" {
		sc.ID = uuid.New().String()
	}
	r.store.schedules[sc.ID] = copySchedule(sc)
	return nil
}

// GetByID はIDから開催枠を取得する
func (r *ScheduleRepository) GetByID(ctx context.Context, id string) (*schedule.ClassSchedule, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	sc, ok := r.store.schedules[id]
	if !ok {
		return nil, schedule.ErrScheduleNotFound
	}
	return copySchedule(sc), nil
}

// ListUpcoming は from 以降に開始する開催枠を開始順に取得する
func (r *ScheduleRepository) ListUpcoming(ctx context.Context, from time.Time, limit int) ([]*schedule.ClassSchedule, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var list []*schedule.ClassSchedule
	for _, sc := range r.store.schedules {
		if !sc.IsCancelled && !sc.StartsAt.Before(from) {
			list = append(list, copySchedule(sc))
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].StartsAt.Before(list[j].StartsAt) })
	return page(list, limit, 0), nil
}

// DecrementSeats は残席が n 以上ある場合のみ減らす
func (r *ScheduleRepository) DecrementSeats(ctx context.Context, id string, n int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	sc, ok := r.store.schedules[id]
	if !ok {
		return schedule.ErrScheduleNotFound
	}
	if sc.RemainingSeats < n {
		return schedule.ErrInsufficientSeats
	}
	sc.RemainingSeats -= n
	sc.UpdatedAt = time.Now()
	return nil
}

// RestoreSeats は残席を定員を上限に増やす
func (r *ScheduleRepository) RestoreSeats(ctx context.Context, id string, n int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	sc, ok := r.store.schedules[id]
	if !ok {
		return schedule.ErrScheduleNotFound
	}
	sc.RemainingSeats = sc.ClampSeats(sc.RemainingSeats + n)
	sc.UpdatedAt = time.Now()
	return nil
}

// CompareAndSetSeats は残席が expected のままの場合のみ置き換える
func (r *ScheduleRepository) CompareAndSetSeats(ctx context.Context, id string, expected, remaining int) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	sc, ok := r.store.schedules[id]
	if !ok {
		return schedule.ErrScheduleNotFound
	}
	if sc.RemainingSeats != expected {
		return schedule.ErrSeatsChanged
	}
	sc.RemainingSeats = sc.ClampSeats(remaining)
	sc.UpdatedAt = time.Now()
	return nil
}
