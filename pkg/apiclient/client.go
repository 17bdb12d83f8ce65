package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// 認証情報の種別ごとに別のHTTPヘッダを使い分ける。
const (
	headerAPIKey      = "X-API-Key"
	headerInternalKey = "X-Internal-Api-Key"
)

// healthTimeout はヘルスチェック専用の短いタイムアウト。
const healthTimeout = 5 * time.Second

// workerTimeout はワーカー1台あたりの状態問い合わせタイムアウト。
const workerTimeout = 3 * time.Second

// Client はvocalyx-apiへのHTTPクライアント。
type Client struct {
	// baseURL は接続先バックエンドのベースURL（末尾スラッシュなし）。
	baseURL string
	// internalKey はサービス間通信用の内部キー。未設定なら空文字。
	internalKey string
	// httpClient は全体タイムアウト付きのHTTPクライアント。
	httpClient *http.Client
	// healthClient はヘルスチェック用の短いタイムアウトを持つクライアント。
	healthClient *http.Client
	logger       *zap.Logger
}

// New は新しいバックエンドクライアントを生成する。
// 接続タイムアウトは全体タイムアウトより短く設定する。応答しない
// バックエンドにゲートウェイが無期限に引きずられることを防ぐ。
func New(baseURL, internalKey string, timeout, connectTimeout time.Duration, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	transport := &http.Transport{
		DialContext: (&net.Dialer{Timeout: connectTimeout}).DialContext,
	}
	return &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		internalKey:  internalKey,
		httpClient:   &http.Client{Timeout: timeout, Transport: transport},
		healthClient: &http.Client{Timeout: healthTimeout, Transport: transport},
		logger:       logger,
	}
}

// UserProfile はバックエンドが返すユーザープロファイル。
type UserProfile struct {
	// Username はユーザーの一意な名前。
	Username string `json:"username"`
	// IsAdmin は管理者権限の有無。権限判定はこの値のみを信頼する。
	IsAdmin bool `json:"is_admin"`
	// LastLoginAt は最終ログイン日時。
	LastLoginAt string `json:"last_login_at"`
}

// Response はバックエンド応答の中継用表現。ステータスコードとボディを
// ほぼそのままブラウザへ返すために使用する。
type Response struct {
	// StatusCode はバックエンドが返したHTTPステータス。
	StatusCode int
	// ContentType は応答のContent-Typeヘッダ。
	ContentType string
	// Body は応答ボディ。
	Body []byte
}

// Login はユーザー名とパスワードでバックエンドに認証を行い、Bearer
// トークンを取得する。認証失敗時はErrAuthFailureを返す。
// パスワードはいかなる場合もログへ出力しない。
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	form := url.Values{}
	form.Set("username", username)
	form.Set("password", password)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/auth/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("認証リクエストの作成に失敗: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("認証エンドポイントへの接続に失敗", zap.Error(err))
		return "", ErrBackendUnavailable
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		// 続行
	case resp.StatusCode >= 500:
		c.logger.Error("認証エンドポイントがサーバーエラーを返した",
			zap.Int("status", resp.StatusCode))
		return "", ErrBackendUnavailable
	default:
		return "", ErrAuthFailure
	}

	var body struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		c.logger.Error("トークンレスポンスの解析に失敗", zap.Error(err))
		return "", ErrBackendUnavailable
	}
	if body.AccessToken == "" {
		return "", ErrAuthFailure
	}
	return body.AccessToken, nil
}

// UserProfile は現在のトークンに対応するユーザープロファイルを取得する。
// 管理者ゲートがリクエストごとにis_adminを再確認するために呼び出す。
func (c *Client) UserProfile(ctx context.Context, token string) (*UserProfile, error) {
	resp, err := c.DoAsUser(ctx, token, http.MethodGet, "/api/user/me", nil, nil, "")
	if err != nil {
		return nil, err
	}
	var profile UserProfile
	if err := json.Unmarshal(resp.Body, &profile); err != nil {
		return nil, fmt.Errorf("プロファイルのデシリアライズに失敗: %w", err)
	}
	return &profile, nil
}

// DoAsUser はBearerトークンを付与してバックエンドを呼び出す。
// ユーザー単位の操作（プロファイル、プロジェクト一覧、文字起こしCRUD）
// に使用する。
func (c *Client) DoAsUser(ctx context.Context, token, method, path string, query url.Values, body io.Reader, contentType string) (*Response, error) {
	return c.do(ctx, method, path, query, body, contentType, func(req *http.Request) {
		req.Header.Set("Authorization", "Bearer "+token)
	})
}

// DoAsProject はプロジェクトAPIキーを付与してバックエンドを呼び出す。
// プロジェクト単位の書き込み（文字起こしの投入）に使用する。
// キーは中継するのみで保存しない。
func (c *Client) DoAsProject(ctx context.Context, apiKey, method, path string, query url.Values, body io.Reader, contentType string) (*Response, error) {
	return c.do(ctx, method, path, query, body, contentType, func(req *http.Request) {
		req.Header.Set(headerAPIKey, apiKey)
	})
}

// DoInternal は内部サービスキーを付与してバックエンドを呼び出す。
// 内部キーが未設定の場合は実行せずErrInternalKeyDisabledを返す。
func (c *Client) DoInternal(ctx context.Context, method, path string, query url.Values) (*Response, error) {
	if c.internalKey == "" {
		return nil, ErrInternalKeyDisabled
	}
	return c.do(ctx, method, path, query, nil, "", func(req *http.Request) {
		req.Header.Set(headerInternalKey, c.internalKey)
	})
}

// do は認証ヘッダの付与とエラー種別の対応付けを行う共通処理。
// 401/403/5xxは型付きエラーへ変換し、それ以外の応答はそのまま返す。
// エラーボディはログにも戻り値にも含めない。
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body io.Reader, contentType string, auth func(*http.Request)) (*Response, error) {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return nil, fmt.Errorf("バックエンドリクエストの作成に失敗: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	auth(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("バックエンドへの接続に失敗",
			zap.String("method", method),
			zap.String("path", path),
			zap.Error(err))
		return nil, ErrBackendUnavailable
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		return nil, ErrUnauthorized
	case resp.StatusCode == http.StatusForbidden:
		return nil, ErrForbidden
	case resp.StatusCode >= 500:
		c.logger.Error("バックエンドがサーバーエラーを返した",
			zap.String("method", method),
			zap.String("path", path),
			zap.Int("status", resp.StatusCode))
		return nil, ErrBackendUnavailable
	}

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("バックエンド応答の読み取りに失敗: %w", err)
	}
	contentTypeHeader := resp.Header.Get("Content-Type")
	if contentTypeHeader == "" {
		contentTypeHeader = "application/json"
	}
	return &Response{
		StatusCode:  resp.StatusCode,
		ContentType: contentTypeHeader,
		Body:        respBody,
	}, nil
}

// Health はバックエンドの死活を確認する。短いタイムアウトで呼び出し、
// 失敗時もエラーにせずunhealthyとして報告する。
func (c *Client) Health(ctx context.Context) map[string]any {
	unhealthy := map[string]any{"status": "unhealthy"}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return unhealthy
	}
	resp, err := c.healthClient.Do(req)
	if err != nil {
		c.logger.Warn("ヘルスチェックに失敗", zap.Error(err))
		return unhealthy
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		c.logger.Warn("ヘルスチェックが異常ステータスを返した", zap.Int("status", resp.StatusCode))
		return unhealthy
	}

	var body map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return unhealthy
	}
	return body
}

// WorkerStatus は1台のワーカーの稼働状況。問い合わせに失敗した場合は
// offline状態のプレースホルダとして埋める。
type WorkerStatus struct {
	// InstanceName はワーカーの識別名。取得失敗時は接続先URL。
	InstanceName string `json:"instance_name"`
	// Status は稼働状態（online/offline）。
	Status string `json:"status"`
	// MaxWorkers は同時実行できるタスク数の上限。
	MaxWorkers int `json:"max_workers"`
	// ActiveTasks は処理中のタスク数。
	ActiveTasks int `json:"active_tasks"`
	// Error は取得失敗時の失敗種別。
	Error string `json:"error,omitempty"`
}

// WorkerStatuses は設定された全ワーカーへ並行に状態を問い合わせ、
// 結果を設定順に集約する。内部サービスキーが未設定の場合は
// 問い合わせを行わずErrInternalKeyDisabledを返す。
func (c *Client) WorkerStatuses(ctx context.Context, workerURLs []string) ([]WorkerStatus, error) {
	if c.internalKey == "" {
		return nil, ErrInternalKeyDisabled
	}

	statuses := make([]WorkerStatus, len(workerURLs))
	var wg sync.WaitGroup
	for i, workerURL := range workerURLs {
		i, workerURL := i, workerURL
		wg.Add(1)
		go func() {
			defer wg.Done()
			statuses[i] = c.fetchWorkerStatus(ctx, workerURL)
		}()
	}
	wg.Wait()
	return statuses, nil
}

// fetchWorkerStatus は1台のワーカーへの状態問い合わせ。1台あたり
// workerTimeoutで打ち切り、失敗はofflineプレースホルダで表現する。
func (c *Client) fetchWorkerStatus(ctx context.Context, workerURL string) WorkerStatus {
	offline := WorkerStatus{InstanceName: workerURL, Status: "offline"}

	ctx, cancel := context.WithTimeout(ctx, workerTimeout)
	defer cancel()

	u := strings.TrimRight(workerURL, "/") + "/api/worker/status"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		offline.Error = "リクエスト作成失敗"
		return offline
	}
	req.Header.Set(headerInternalKey, c.internalKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		offline.Error = "接続失敗"
		return offline
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var status WorkerStatus
		if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
			offline.Error = "応答の解析失敗"
			return offline
		}
		return status
	case http.StatusForbidden:
		offline.Error = "認証エラー (403)"
		return offline
	default:
		offline.Error = fmt.Sprintf("HTTPエラー (%d)", resp.StatusCode)
		return offline
	}
}
