// Package session はブラウザCookieとバックエンド発行のBearerトークンを
// 相互変換するセッションコーデックを提供する。
//
// このパッケージはトークンの中身を一切解釈しない。Cookieは単なる輸送
// 手段であり、トークンの有効性判定は常にバックエンドAPIへの呼び出しに
// 委譲される。ゲートウェイはサーバー側にセッションテーブルを持たない。
package session
