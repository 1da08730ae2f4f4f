package schedule

import "time"

// ClassSchedule はクラスの開催枠を表す
type ClassSchedule struct {
	ID              string    `json:"id"`
	ClassID         string    `json:"class_id"`
	StartsAt        time.Time `json:"starts_at"`
	DurationMinutes int       `json:"duration_minutes"`
	Capacity        int       `json:"capacity"`
	RemainingSeats  int       `json:"remaining_seats"`
	IsCancelled     bool      `json:"is_cancelled"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// NewClassSchedule は残席が定員と等しい新しい開催枠を作成する
func NewClassSchedule(classID string, startsAt time.Time, durationMinutes, capacity int) *ClassSchedule {
	now := time.Now()
	return &ClassSchedule{
		ClassID:         classID,
		StartsAt:        startsAt,
		DurationMinutes: durationMinutes,
		Capacity:        capacity,
		RemainingSeats:  capacity,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

// HasSeats は n 人分の残席があるかを返す
func (s *ClassSchedule) HasSeats(n int) bool {
	return s.RemainingSeats >= n
}

// IsBookable は now 時点で予約を受け付けられるかを返す
func (s *ClassSchedule) IsBookable(now time.Time) bool {
	return !s.IsCancelled && now.Before(s.StartsAt)
}

// EndsAt は終了時刻を返す
func (s *ClassSchedule) EndsAt() time.Time {
	return s.StartsAt.Add(time.Duration(s.DurationMinutes) * time.Minute)
}

// ClampSeats は残席数を 0 以上 定員以下に丸める
func (s *ClassSchedule) ClampSeats(n int) int {
	if n < 0 {
		return 0
	}
	if n > s.Capacity {
		return s.Capacity
	}
	return n
}

// Validate は開催枠の検証を行う
func (s *ClassSchedule) Validate() error {
	if s.ClassID == "" {
		return ErrClassIDRequired
	}
	if s.StartsAt.IsZero() {
		return ErrStartsAtRequired
	}
	if s.DurationMinutes <= 0 {
		return ErrInvalidDuration
	}
	if s.Capacity <= 0 {
		return ErrInvalidCapacity
	}
	if s.RemainingSeats < 0 || s.RemainingSeats > s.Capacity {
		return ErrInvalidRemainingSeats
	}
	return nil
}
