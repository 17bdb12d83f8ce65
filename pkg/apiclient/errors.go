package apiclient

import "errors"

// バックエンド呼び出しの失敗種別。呼び出し側はerrors.Isで判定し、
// Cookieの破棄（401）と一時的エラーの表示（5xx）を区別する。
var (
	// ErrAuthFailure はログイン時の認証情報不正を表す。
	ErrAuthFailure = errors.New("ユーザー名またはパスワードが正しくない")

	// ErrUnauthorized はバックエンドがBearerトークンを拒否したことを表す。
	// セッションCookieは失効扱いとなる。
	ErrUnauthorized = errors.New("バックエンドがトークンを拒否した")

	// ErrForbidden は認証済みだが操作の権限が不足していることを表す。
	ErrForbidden = errors.New("この操作を行う権限がない")

	// ErrBackendUnavailable はバックエンドの5xx応答または通信障害を表す。
	// 一時的エラーとしてリトライ可能。
	ErrBackendUnavailable = errors.New("バックエンドAPIが利用できない")

	// ErrInternalKeyDisabled は内部サービスキーが未設定のため、内部
	// 呼び出しが無効化されていることを表す。
	ErrInternalKeyDisabled = errors.New("内部サービスキーが未設定")
)
