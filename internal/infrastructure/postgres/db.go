package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/sanosuguru/go-class-reservation/internal/config"
)

// NewConnection はPostgreSQLへの接続を作成する
func NewConnection(cfg *config.DatabaseConfig) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗しました: %w", err)
	}

	// 接続プール設定
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)

	return db, nil
}

// Ping はデータベース接続を確認する
func Ping(ctx context.Context, db *sqlx.DB) error {
	return db.PingContext(ctx)
}

// invalid_text_representation: UUID でない ID で検索した場合
const codeInvalidText = "22P02"

func isInvalidID(err error) bool {
	var pgErr *pq.Error
	return errors.As(err, &pgErr) && pgErr.Code == codeInvalidText
}
