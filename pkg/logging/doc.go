// Package logging はゲートウェイ全体で使う構造化ロガーの生成を提供する。
package logging
