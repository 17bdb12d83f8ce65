// Package gateway は音声転写ダッシュボードのフロントエンドゲートウェイを提供する。
//
// ブラウザからの唯一の入口であり、セッションCookieによる認証、
// レート制限、資格情報の付け替えを行ってバックエンドAPIへ中継する。
// バックエンドのデータを保持せず、セキュリティの境界線として機能する。
package gateway
