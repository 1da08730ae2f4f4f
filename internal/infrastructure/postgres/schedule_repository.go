package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/sanosuguru/go-class-reservation/internal/domain/schedule"
)

type scheduleRow struct {
	ID              string    `db:"id"`
	ClassID         string    `db:"class_id"`
	StartsAt        time.Time `db:"starts_at"`
	DurationMinutes int       `db:"duration_minutes"`
	Capacity        int       `db:"capacity"`
	RemainingSeats  int       `db:"remaining_seats"`
	IsCancelled     bool      `db:"is_cancelled"`
	CreatedAt       time.Time `db:"created_at"`
	UpdatedAt       time.Time `db:"updated_at"`
}

func (r *scheduleRow) toEntity() *schedule.ClassSchedule {
	return &schedule.ClassSchedule{
		ID: r.ID, ClassID: r.ClassID, StartsAt: r.StartsAt,
		DurationMinutes: r.DurationMinutes, Capacity: r.Capacity,
		RemainingSeats: r.RemainingSeats, IsCancelled: r.IsCancelled,
		CreatedAt: r.CreatedAt, UpdatedAt: r.UpdatedAt,
	}
}

const scheduleColumns = `id, class_id, starts_at, duration_minutes, capacity, remaining_seats, is_cancelled, created_at, updated_at`

type ScheduleRepository struct{ db *sqlx.DB }

func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository { return &ScheduleRepository{db: db} }

func (r *ScheduleRepository) Create(ctx context.Context, s *schedule.ClassSchedule) error {
	query := `INSERT INTO class_schedules (class_id, starts_at, duration_minutes, capacity, remaining_seats, is_cancelled, created_at, updated_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`
	if err := r.db.QueryRowContext(ctx, query, s.ClassID, s.StartsAt, s.DurationMinutes, s.Capacity, s.RemainingSeats, s.IsCancelled, s.CreatedAt, s.UpdatedAt).Scan(&s.ID); err != nil {
		return fmt.Errorf("開催枠作成に失敗: %w", err)
	}
	return nil
}

func (r *ScheduleRepository) GetByID(ctx context.Context, id string) (*schedule.ClassSchedule, error) {
	var row scheduleRow
	if err := r.db.GetContext(ctx, &row, `SELECT `+scheduleColumns+` FROM class_schedules WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) || isInvalidID(err) {
			return nil, schedule.ErrScheduleNotFound
		}
		return nil, fmt.Errorf("開催枠取得に失敗: %w", err)
	}
	return row.toEntity(), nil
}

func (r *ScheduleRepository) ListUpcoming(ctx context.Context, from time.Time, limit int) ([]*schedule.ClassSchedule, error) {
	var rows []scheduleRow
	query := `SELECT ` + scheduleColumns + ` FROM class_schedules WHERE starts_at >= $1 AND is_cancelled = FALSE ORDER BY starts_at ASC`
	args := []interface{}{from}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}
	if err := r.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("開催枠一覧取得に失敗: %w", err)
	}
	result := make([]*schedule.ClassSchedule, len(rows))
	for i := range rows {
		result[i] = rows[i].toEntity()
	}
	return result, nil
}

// DecrementSeats は残席が n 以上ある行だけを更新する
func (r *ScheduleRepository) DecrementSeats(ctx context.Context, id string, n int) error {
	query := `UPDATE class_schedules SET remaining_seats = remaining_seats - $1, updated_at = NOW() WHERE id = $2 AND remaining_seats >= $1`
	result, err := r.db.ExecContext(ctx, query, n, id)
	if err != nil {
		return fmt.Errorf("残席更新に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return schedule.ErrInsufficientSeats
	}
	return nil
}

func (r *ScheduleRepository) RestoreSeats(ctx context.Context, id string, n int) error {
	query := `UPDATE class_schedules SET remaining_seats = LEAST(capacity, remaining_seats + $1), updated_at = NOW() WHERE id = $2`
	return r.execOne(ctx, query, n, id)
}

// CompareAndSetSeats は読み取った残席数を条件に含めて置き換える
func (r *ScheduleRepository) CompareAndSetSeats(ctx context.Context, id string, expected, remaining int) error {
	query := `UPDATE class_schedules SET remaining_seats = GREATEST(0, LEAST(capacity, $1)), updated_at = NOW() WHERE id = $2 AND remaining_seats = $3`
	result, err := r.db.ExecContext(ctx, query, remaining, id, expected)
	if err != nil {
		if isInvalidID(err) {
			return schedule.ErrScheduleNotFound
		}
		return fmt.Errorf("残席更新に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
		return schedule.ErrSeatsChanged
	}
	return nil
}

func (r *ScheduleRepository) execOne(ctx context.Context, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		if isInvalidID(err) {
			return schedule.ErrScheduleNotFound
		}
		return fmt.Errorf("残席更新に失敗: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return schedule.ErrScheduleNotFound
	}
	return nil
}

var _ schedule.Repository = (*ScheduleRepository)(nil)
