package memory

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/sanosuguru/go-class-reservation/internal/domain/reservation"
)

// ReservationRepository は reservation.Repository のメモリ実装
type ReservationRepository struct {
	store *Store
}

// Create は新しい予約を作成する
func (r *ReservationRepository) Create(ctx context.Context, res *reservation.Reservation) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if res.ID == "" {
		res.ID = uuid.New().String()
	}
	r.store.reservations[res.ID] = copyReservation(res)
	return nil
}

// GetByID はIDから予約を取得する
func (r *ReservationRepository) GetByID(ctx context.Context, id string) (*reservation.Reservation, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	res, ok := r.store.reservations[id]
	if !ok {
		return nil, reservation.ErrReservationNotFound
	}
	return copyReservation(res), nil
}

// GetByIDForUser は所有者を条件に含めて予約を取得する
func (r *ReservationRepository) GetByIDForUser(ctx context.Context, id, userID string) (*reservation.Reservation, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	res, ok := r.store.reservations[id]
	if !ok || res.UserID != userID {
		return nil, reservation.ErrReservationNotFound
	}
	return copyReservation(res), nil
}

// GetByUserID はユーザーの予約を新しい順に取得する
func (r *ReservationRepository) GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*reservation.Reservation, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var list []*reservation.Reservation
	for _, res := range r.store.reservations {
		if res.UserID == userID {
			list = append(list, copyReservation(res))
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].CreatedAt.After(list[j].CreatedAt) })
	return page(list, limit, offset), nil
}

// LinkSession は予約にセッション残高IDを紐付ける
func (r *ReservationRepository) LinkSession(ctx context.Context, id, sessionID string, at time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	res, ok := r.store.reservations[id]
	if !ok {
		return reservation.ErrReservationNotFound
	}
	res.SessionID = &sessionID
	res.UpdatedAt = at
	return nil
}

// UpdateStatus はステータスを無条件に上書きする
func (r *ReservationRepository) UpdateStatus(ctx context.Context, id string, status reservation.Status, updatedBy *string, at time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	res, ok := r.store.reservations[id]
	if !ok {
		return reservation.ErrReservationNotFound
	}
	res.Status = status
	res.UpdatedAt = at
	if updatedBy != nil {
		res.UpdatedBy = updatedBy
	}
	return nil
}

// TransitionStatus は現在のステータスが from のいずれかの場合のみ更新する
func (r *ReservationRepository) TransitionStatus(ctx context.Context, id string, from []reservation.Status, to reservation.Status, updatedBy *string, at time.Time) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	res, ok := r.store.reservations[id]
	if !ok {
		return reservation.ErrReservationNotFound
	}
	if !slices.Contains(from, res.Status) {
		return reservation.ErrStatusConflict
	}
	res.Status = to
	res.UpdatedAt = at
	if updatedBy != nil {
		res.UpdatedBy = updatedBy
	}
	return nil
}

// GetExpiredPending は期限切れの保留中予約を取得する
func (r *ReservationRepository) GetExpiredPending(ctx context.Context, now time.Time) ([]*reservation.Reservation, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	var list []*reservation.Reservation
	for _, res := range r.store.reservations {
		if res.IsExpiredAt(now) {
			list = append(list, copyReservation(res))
		}
	}
	sort.Slice(list, func(i, j int) bool { return list[i].ExpiresAt.Before(*list[j].ExpiresAt) })
	return list, nil
}

// ExpirePending は保留中のものだけを expired に更新する
func (r *ReservationRepository) ExpirePending(ctx context.Context, ids []string, at time.Time) ([]string, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	expired := make([]string, 0, len(ids))
	for _, id := range ids {
		res, ok := r.store.reservations[id]
		if !ok || res.Status != reservation.StatusPending {
			continue
		}
		res.Status = reservation.StatusExpired
		res.UpdatedAt = at
		expired = append(expired, id)
	}
	return expired, nil
}

// Delete は予約を物理削除する
func (r *ReservationRepository) Delete(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	if _, ok := r.store.reservations[id]; !ok {
		return reservation.ErrReservationNotFound
	}
	delete(r.store.reservations, id)
	return nil
}

// CountOccupiedSeats は座席を占有している受講人数の合計を返す
func (r *ReservationRepository) CountOccupiedSeats(ctx context.Context, scheduleID string) (int, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()
	total := 0
	for _, res := range r.store.reservations {
		if res.ScheduleID == scheduleID && res.Status.OccupiesSeat() {
			total += res.StudentCount
		}
	}
	return total, nil
}
