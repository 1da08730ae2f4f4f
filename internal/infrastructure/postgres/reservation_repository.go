package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sanosuguru/go-class-reservation/internal/domain/reservation"
)

type reservationRow struct {
	ID            string     `db:"id"`
	UserID        string     `db:"user_id"`
	ScheduleID    string     `db:"schedule_id"`
	Status        string     `db:"status"`
	SessionID     *string    `db:"session_id"`
	StudentCount  int        `db:"student_count"`
	TotalPrice    int        `db:"total_price"`
	PaymentMethod string     `db:"payment_method"`
	Notes         *string    `db:"notes"`
	ExpiresAt     *time.Time `db:"expires_at"`
	CreatedAt     time.Time  `db:"created_at"`
	UpdatedAt     time.Time  `db:"updated_at"`
	UpdatedBy     *string    `db:"updated_by"`
}

func (r *reservationRow) toEntity() *reservation.Reservation {
	return &reservation.Reservation{
		ID: r.ID, UserID: r.UserID, ScheduleID: r.ScheduleID,
		Status: reservation.Status(r.Status), SessionID: r.SessionID,
		StudentCount: r.StudentCount, TotalPrice: r.TotalPrice,
		PaymentMethod: r.PaymentMethod, Notes: r.Notes, ExpiresAt: r.ExpiresAt,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt, UpdatedBy: r.UpdatedBy,
	}
}

const reservationColumns = `id, user_id, schedule_id, status, session_id, student_count, total_price, payment_method, notes, expires_at, created_at, updated_at, updated_by`

type ReservationRepository struct{ db *sqlx.DB }

func NewReservationRepository(db *sqlx.DB) *ReservationRepository {
	return &ReservationRepository{db: db}
}

func (r *ReservationRepository) Create(ctx context.Context, res *reservation.Reservation) error {
	query := `INSERT INTO reservations (user_id, schedule_id, status, session_id, student_count, total_price, payment_method, notes, expires_at, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11) RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, res.UserID, res.ScheduleID, string(res.Status), res.SessionID, res.StudentCount, res.TotalPrice, res.PaymentMethod, res.Notes, res.ExpiresAt, res.CreatedAt, res.UpdatedAt).Scan(&res.ID); err != nil {
		return fmt.Errorf("予約作成に失敗: %w", err)
	}
	return nil
}

func (r *ReservationRepository) GetByID(ctx context.Context, id string) (*reservation.Reservation, error) {
	return r.getOne(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id)
}

func (r *ReservationRepository) GetByIDForUser(ctx context.Context, id, userID string) (*reservation.Reservation, error) {
	return r.getOne(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1 AND user_id = $2`, id, userID)
}

func (r *ReservationRepository) getOne(ctx context.Context, query string, args ...interface{}) (*reservation.Reservation, error) {
	var row reservationRow
	if err := r.db.GetContext(ctx, &row, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidID(err) {
			return nil, reservation.ErrReservationNotFound
		}
		return nil, fmt.Errorf("予約取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *ReservationRepository) GetByUserID(ctx context.Context, userID string, limit, offset int) ([]*reservation.Reservation, error) {
	var rows []reservationRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT `+reservationColumns+` FROM reservations WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2 OFFSET $3`, userID, limit, offset); err != nil {
		return nil, fmt.Errorf("予約一覧取得に失敗: %w", err)
	}
	return toReservations(rows), nil
}

func (r *ReservationRepository) LinkSession(ctx context.Context, id, sessionID string, at time.Time) error {
	return r.execOne(ctx, `UPDATE reservations SET session_id = $1, updated_at = $2 WHERE id = $3`, sessionID, at, id)
}

// UpdateStatus は updatedBy が nil の場合は直前の更新者を残す
func (r *ReservationRepository) UpdateStatus(ctx context.Context, id string, status reservation.Status, updatedBy *string, at time.Time) error {
	return r.execOne(ctx, `UPDATE reservations SET status = $1, updated_by = COALESCE($2, updated_by), updated_at = $3 WHERE id = $4`, string(status), updatedBy, at, id)
}

// TransitionStatus は現在のステータスを条件に含めて更新する
func (r *ReservationRepository) TransitionStatus(ctx context.Context, id string, from []reservation.Status, to reservation.Status, updatedBy *string, at time.Time) error {
	query := `UPDATE reservations SET status = $1, updated_by = COALESCE($2, updated_by), updated_at = $3 WHERE id = $4 AND status = ANY($5)`
	result, err := r.db.ExecContext(ctx, query, string(to), updatedBy, at, id, pq.Array(statusStrings(from)))
	if err != nil {
		if isInvalidID(err) {
			return reservation.ErrReservationNotFound
		}
		return fmt.Errorf("予約更新に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return reservation.ErrStatusConflict
	}
	return nil
}

func (r *ReservationRepository) GetExpiredPending(ctx context.Context, now time.Time) ([]*reservation.Reservation, error) {
	var rows []reservationRow
	if err := r.db.SelectContext(ctx, &rows, `SELECT `+reservationColumns+` FROM reservations WHERE status = 'pending' AND expires_at < $1 ORDER BY expires_at ASC`, now); err != nil {
		return nil, fmt.Errorf("期限切れ予約取得に失敗: %w", err)
	}
	return toReservations(rows), nil
}

// ExpirePending は保留中の行だけを更新し、実際に更新したIDを返す
func (r *ReservationRepository) ExpirePending(ctx context.Context, ids []string, at time.Time) ([]string, error) {
	if len(ids) == 0 {
		return []string{}, nil
	}
	expired := []string{}
	query := `UPDATE reservations SET status = 'expired', updated_at = $1 WHERE id = ANY($2) AND status = 'pending' RETURNING id`
	if err := r.db.SelectContext(ctx, &expired, query, at, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("期限切れ更新に失敗: %w", err)
	}
	return expired, nil
}

func (r *ReservationRepository) Delete(ctx context.Context, id string) error {
	return r.execOne(ctx, `DELETE FROM reservations WHERE id = $1`, id)
}

func (r *ReservationRepository) CountOccupiedSeats(ctx context.Context, scheduleID string) (int, error) {
	var total int
	query := `SELECT COALESCE(SUM(student_count), 0) FROM reservations WHERE schedule_id = $1 AND status = ANY($2)`
	if err := r.db.GetContext(ctx, &total, query, scheduleID, pq.Array(occupyingStatuses())); err != nil {
		return 0, fmt.Errorf("占有座席数の集計に失敗: %w", err)
	}
	return total, nil
}

func (r *ReservationRepository) execOne(ctx context.Context, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isInvalidID(err) {
			return reservation.ErrReservationNotFound
		}
		return fmt.Errorf("予約更新に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return reservation.ErrReservationNotFound
	}
	return nil
}

func toReservations(rows []reservationRow) []*reservation.Reservation {
	result := make([]*reservation.Reservation, len(rows))
	for i := range rows {
		result[i] = rows[i].toEntity()
	}
	return result
}

func statusStrings(statuses []reservation.Status) []string {
	s := make([]string, len(statuses))
	for i, st := range statuses {
		s[i] = string(st)
	}
	return s
}

func occupyingStatuses() []string {
	var s []string
	for _, st := range reservation.AllStatuses() {
		if st.OccupiesSeat() {
			s = append(s, string(st))
		}
	}
	return s
}

var _ reservation.Repository = (*ReservationRepository)(nil)
