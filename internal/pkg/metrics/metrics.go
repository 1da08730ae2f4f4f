package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics はアプリケーションのメトリクスを管理する
type Metrics struct {
	// HTTPリクエストの総数（method, path, status_code）
	HTTPRequestsTotal *prometheus.CounterVec

	// HTTPリクエストのレイテンシ（method, path）
	HTTPRequestDuration *prometheus.HistogramVec

	// 予約作成の総数（result: success, availability_denied, insufficient_sessions, store_write_failed, invalid_input, lock_failed）
	BookingsTotal *prometheus.CounterVec

	// キャンセルの総数（result: success, not_found, invalid_state, error）
	CancellationsTotal *prometheus.CounterVec

	// 補償処理の実行数（step, result: success/failed）
	CompensationsTotal *prometheus.CounterVec

	// 期限切れにした予約の総数
	ExpiredReservationsTotal prometheus.Counter

	// 残席再計算の結果（result: corrected, unchanged, skipped, error）
	SeatReconciliationsTotal *prometheus.CounterVec

	// 分散ロックの操作時間（operation: acquire/release, status: success/failed）
	DistributedLockDuration *prometheus.HistogramVec
}

// New は新しいMetricsインスタンスを作成し、デフォルトレジストリに登録する
func New() *Metrics {
	return NewWithRegistry(prometheus.DefaultRegisterer)
}

// NewWithRegistry は指定したレジストリにメトリクスを登録する
func NewWithRegistry(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request latency in seconds",
				Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
			},
			[]string{"method", "path"},
		),
		BookingsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "class_bookings_total",
				Help: "Total number of class booking attempts by result",
			},
			[]string{"result"},
		),
		CancellationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "class_cancellations_total",
				Help: "Total number of reservation cancellations by result",
			},
			[]string{"result"},
		),
		CompensationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "booking_compensations_total",
				Help: "Compensating actions executed after a failed booking step",
			},
			[]string{"step", "result"},
		),
		ExpiredReservationsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "expired_reservations_total",
				Help: "Pending reservations moved to expired by the sweeper",
			},
		),
		SeatReconciliationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "seat_reconciliations_total",
				Help: "Remaining-seat reconciliation outcomes per schedule",
			},
			[]string{"result"},
		),
		DistributedLockDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "distributed_lock_duration_seconds",
				Help:    "Time spent on distributed lock operations",
				Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"operation", "status"},
		),
	}

	reg.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.BookingsTotal,
		m.CancellationsTotal,
		m.CompensationsTotal,
		m.ExpiredReservationsTotal,
		m.SeatReconciliationsTotal,
		m.DistributedLockDuration,
	)

	return m
}

// デフォルトのメトリクスインスタンス
var defaultMetrics *Metrics

// Init はデフォルトのメトリクスインスタンスを初期化する
func Init() *Metrics {
	defaultMetrics = New()
	return defaultMetrics
}

// Get はデフォルトのメトリクスインスタンスを返す
func Get() *Metrics {
	return defaultMetrics
}
