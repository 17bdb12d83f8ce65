// Package middleware はGinベースのゲートウェイで使用する共通ミドルウェアを提供する。
//
// セッションCookieによる認証ゲート、管理者権限ゲート、リクエスト単位の
// レート制限、リクエストID付与、アクセスログ、パニックリカバリ、
// CORS設定を含む。
package middleware
