// Package ratelimit は固定ウィンドウ方式のレートリミッタを提供する。
//
// 識別子（呼び出し元IPまたはプロジェクト名）ごとにウィンドウ内の
// リクエスト数を数え、閾値を超えたリクエストを拒否する。カウンタの
// 保存先はプロセス内メモリ（単一インスタンス構成）とRedis（複数
// レプリカ構成）から選択できる。
package ratelimit
