// Package apiclient はバックエンドのvocalyx-apiと通信するHTTPクライアント
// を提供する。
//
// ゲートウェイからバックエンドへの出口はこのパッケージに集約され、他の
// コンポーネントはネットワークへ直接触れない。呼び出しの認証には
// Bearerトークン・プロジェクトAPIキー・内部サービスキーの3種類を
// 呼び出し箇所ごとに明示的に使い分ける。通信障害とHTTPエラーは型付きの
// エラーへ対応付けられ、呼び出し側がCookieの破棄やリトライ可否を
// 判断できるようにする。
package apiclient
