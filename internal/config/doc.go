// Package config はゲートウェイの設定の読み込みと検証を提供する。
//
// 設定はYAMLファイルから読み込み、一部の値は環境変数で上書きできる。
// ファイルが存在しない場合はデフォルト設定を書き出して利用する。
package config
