package session

import "errors"

// Session ドメインのエラー定義
var (
	ErrBalanceNotFound      = errors.New("セッション残高が見つかりません")
	ErrInsufficientSessions = errors.New("セッション残高が不足しています")
	ErrNegativeBalance      = errors.New("セッション残高は負にできません")
	ErrInvalidAmount        = errors.New("増減量は0以外である必要があります")
	ErrReasonRequired       = errors.New("理由は必須です")
)
