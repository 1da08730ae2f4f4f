package reservation

import "time"

// Status は予約の状態を表す
type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
	StatusAttended  Status = "attended"
	StatusNoShow    Status = "no-show"
)

// PaymentMethodCard はカード決済。予約作成時点で確定扱いになる
const PaymentMethodCard = "card"

// DefaultPendingTTL は保留中予約の有効期限（デフォルト15分）
const DefaultPendingTTL = 15 * time.Minute

// ParseStatus は文字列を既知のステータスに変換する
func ParseStatus(s string) (Status, error) {
	for _, st := range AllStatuses() {
		if string(st) == s {
			return st, nil
		}
	}
	return "", ErrUnknownStatus
}

// AllStatuses は定義済みの全ステータスを返す
func AllStatuses() []Status {
	return []Status{StatusPending, StatusConfirmed, StatusCancelled, StatusExpired, StatusAttended, StatusNoShow}
}

// OccupiesSeat は座席を占有しているステータスかを返す
func (s Status) OccupiesSeat() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusAttended, StatusNoShow:
		return true
	}
	return false
}

// Reservation はクラス予約エンティティを表す
type Reservation struct {
	ID            string     `json:"id"`
	UserID        string     `json:"user_id"`
	ScheduleID    string     `json:"schedule_id"`
	Status        Status     `json:"status"`
	SessionID     *string    `json:"session_id,omitempty"`
	StudentCount  int        `json:"student_count"`
	TotalPrice    int        `json:"total_price"`
	PaymentMethod string     `json:"payment_method"`
	Notes         *string    `json:"notes,omitempty"`
	ExpiresAt     *time.Time `json:"expires_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	UpdatedBy     *string    `json:"updated_by,omitempty"`
}

// NewReservation は新しい予約を作成する
// カード決済は confirmed、それ以外は有効期限付きの pending で作成される
func NewReservation(userID, scheduleID string, studentCount, totalPrice int, paymentMethod string, notes *string, now time.Time, pendingTTL time.Duration) *Reservation {
	r := &Reservation{
		UserID:        userID,
		ScheduleID:    scheduleID,
		StudentCount:  studentCount,
		TotalPrice:    totalPrice,
		PaymentMethod: paymentMethod,
		Notes:         notes,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if paymentMethod == PaymentMethodCard {
		r.Status = StatusConfirmed
		return r
	}
	if pendingTTL <= 0 {
		pendingTTL = DefaultPendingTTL
	}
	expiresAt := now.Add(pendingTTL)
	r.Status = StatusPending
	r.ExpiresAt = &expiresAt
	return r
}

// IsPending は予約が保留中かを返す
func (r *Reservation) IsPending() bool {
	return r.Status == StatusPending
}

// IsExpiredAt は指定時刻において保留期限を過ぎているかを返す
func (r *Reservation) IsExpiredAt(now time.Time) bool {
	return r.Status == StatusPending && r.ExpiresAt != nil && r.ExpiresAt.Before(now)
}

// IsCancellable はキャンセル可能な状態かを返す
func (r *Reservation) IsCancellable() bool {
	return r.Status == StatusPending || r.Status == StatusConfirmed
}

// HasSession はセッションを消費した予約かを返す
func (r *Reservation) HasSession() bool {
	return r.SessionID != nil && *r.SessionID != ""
}

// Validate は予約の検証を行う
func (r *Reservation) Validate() error {
	if r.UserID == "" {
		return ErrUserIDRequired
	}
	if r.ScheduleID == "" {
		return ErrScheduleIDRequired
	}
	if r.StudentCount <= 0 {
		return ErrInvalidStudentCount
	}
	if r.TotalPrice < 0 {
		return ErrInvalidTotalPrice
	}
	if r.PaymentMethod == "" {
		return ErrPaymentMethodRequired
	}
	return nil
}
