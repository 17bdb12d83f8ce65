package apiclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

// newTestClient はテスト用バックエンドへ接続するクライアントを生成する。
func newTestClient(t *testing.T, handler http.HandlerFunc, internalKey string) *Client {
	t.Helper()

	backend := httptest.NewServer(handler)
	t.Cleanup(backend.Close)
	return New(backend.URL, internalKey, 30*time.Second, 5*time.Second, nil)
}

// TestLogin はログイン処理のエラー対応付けを検証する。
func TestLogin(t *testing.T) {
	t.Parallel()

	t.Run("認証成功時にトークンが返ること", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost || r.URL.Path != "/api/auth/token" {
				t.Errorf("想定外のリクエスト: %s %s", r.Method, r.URL.Path)
			}
			if err := r.ParseForm(); err != nil {
				t.Errorf("フォームの解析に失敗: %v", err)
			}
			if r.PostFormValue("username") != "alice" {
				t.Errorf("username = %q, want %q", r.PostFormValue("username"), "alice")
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"access_token":"token-123","token_type":"bearer"}`)
		}, "")

		token, err := client.Login(context.Background(), "alice", "secret")
		if err != nil {
			t.Fatalf("Login()でエラーが発生: %v", err)
		}
		if token != "token-123" {
			t.Errorf("token = %q, want %q", token, "token-123")
		}
	})

	t.Run("401応答でErrAuthFailureが返ること", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}, "")

		_, err := client.Login(context.Background(), "alice", "wrongpass")
		if !errors.Is(err, ErrAuthFailure) {
			t.Errorf("err = %v, want ErrAuthFailure", err)
		}
	})

	t.Run("5xx応答でErrBackendUnavailableが返ること", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
		}, "")

		_, err := client.Login(context.Background(), "alice", "secret")
		if !errors.Is(err, ErrBackendUnavailable) {
			t.Errorf("err = %v, want ErrBackendUnavailable", err)
		}
	})

	t.Run("接続失敗でErrBackendUnavailableが返ること", func(t *testing.T) {
		t.Parallel()

		backend := httptest.NewServer(http.NotFoundHandler())
		backend.Close()
		client := New(backend.URL, "", 30*time.Second, 5*time.Second, nil)

		_, err := client.Login(context.Background(), "alice", "secret")
		if !errors.Is(err, ErrBackendUnavailable) {
			t.Errorf("err = %v, want ErrBackendUnavailable", err)
		}
	})

	t.Run("解析できない200応答はErrBackendUnavailableとなること", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"access_token":`)
		}, "")

		_, err := client.Login(context.Background(), "alice", "secret")
		if !errors.Is(err, ErrBackendUnavailable) {
			t.Errorf("err = %v, want ErrBackendUnavailable", err)
		}
	})

	t.Run("トークンを含まない200応答はErrAuthFailureとなること", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"token_type":"bearer"}`)
		}, "")

		_, err := client.Login(context.Background(), "alice", "secret")
		if !errors.Is(err, ErrAuthFailure) {
			t.Errorf("err = %v, want ErrAuthFailure", err)
		}
	})
}

// TestUserProfile はプロファイル取得を検証する。
func TestUserProfile(t *testing.T) {
	t.Parallel()

	t.Run("プロファイルが取得できること", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "Bearer token-123" {
				t.Errorf("Authorization = %q, want %q", got, "Bearer token-123")
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"username":"alice","is_admin":true,"last_login_at":"2026-08-30T10:00:00Z"}`)
		}, "")

		profile, err := client.UserProfile(context.Background(), "token-123")
		if err != nil {
			t.Fatalf("UserProfile()でエラーが発生: %v", err)
		}
		if profile.Username != "alice" {
			t.Errorf("Username = %q, want %q", profile.Username, "alice")
		}
		if !profile.IsAdmin {
			t.Error("IsAdmin = false, want true")
		}
	})

	t.Run("401応答でErrUnauthorizedが返ること", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}, "")

		_, err := client.UserProfile(context.Background(), "expired-token")
		if !errors.Is(err, ErrUnauthorized) {
			t.Errorf("err = %v, want ErrUnauthorized", err)
		}
	})
}

// TestDo は中継呼び出しの認証ヘッダとエラー対応付けを検証する。
func TestDo(t *testing.T) {
	t.Parallel()

	t.Run("DoAsUserがBearerヘッダを付与すること", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("Authorization"); got != "Bearer tok" {
				t.Errorf("Authorization = %q, want %q", got, "Bearer tok")
			}
			fmt.Fprint(w, `{"ok":true}`)
		}, "")

		resp, err := client.DoAsUser(context.Background(), "tok", http.MethodGet, "/api/user/projects", nil, nil, "")
		if err != nil {
			t.Fatalf("DoAsUser()でエラーが発生: %v", err)
		}
		if resp.StatusCode != http.StatusOK {
			t.Errorf("StatusCode = %d, want %d", resp.StatusCode, http.StatusOK)
		}
	})

	t.Run("DoAsProjectがX-API-Keyヘッダを付与すること", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("X-API-Key"); got != "project-key" {
				t.Errorf("X-API-Key = %q, want %q", got, "project-key")
			}
			if got := r.Header.Get("Authorization"); got != "" {
				t.Errorf("Authorizationヘッダが付与されている: %q", got)
			}
			w.WriteHeader(http.StatusCreated)
			fmt.Fprint(w, `{"transcription_id":"t-1"}`)
		}, "")

		resp, err := client.DoAsProject(context.Background(), "project-key",
			http.MethodPost, "/api/transcriptions", nil, strings.NewReader("body"), "multipart/form-data")
		if err != nil {
			t.Fatalf("DoAsProject()でエラーが発生: %v", err)
		}
		if resp.StatusCode != http.StatusCreated {
			t.Errorf("StatusCode = %d, want %d", resp.StatusCode, http.StatusCreated)
		}
	})

	t.Run("DoInternalがX-Internal-Api-Keyヘッダを付与すること", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("X-Internal-Api-Key"); got != "internal-key" {
				t.Errorf("X-Internal-Api-Key = %q, want %q", got, "internal-key")
			}
			fmt.Fprint(w, `[]`)
		}, "internal-key")

		if _, err := client.DoInternal(context.Background(), http.MethodGet, "/api/transcriptions", nil); err != nil {
			t.Fatalf("DoInternal()でエラーが発生: %v", err)
		}
	})

	t.Run("内部キー未設定時はDoInternalが呼び出しを拒否すること", func(t *testing.T) {
		t.Parallel()

		var calls atomic.Int64
		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			calls.Add(1)
			fmt.Fprint(w, `[]`)
		}, "")

		_, err := client.DoInternal(context.Background(), http.MethodGet, "/api/transcriptions", nil)
		if !errors.Is(err, ErrInternalKeyDisabled) {
			t.Errorf("err = %v, want ErrInternalKeyDisabled", err)
		}
		if calls.Load() != 0 {
			t.Errorf("バックエンド呼び出し回数 = %d, want 0", calls.Load())
		}
	})

	t.Run("403応答でErrForbiddenが返ること", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}, "")

		_, err := client.DoAsUser(context.Background(), "tok", http.MethodDelete, "/api/admin/users/42", nil, nil, "")
		if !errors.Is(err, ErrForbidden) {
			t.Errorf("err = %v, want ErrForbidden", err)
		}
	})

	t.Run("404応答はエラーではなくそのまま中継されること", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"detail":"Not found"}`)
		}, "")

		resp, err := client.DoAsUser(context.Background(), "tok", http.MethodGet, "/api/user/transcriptions/missing", nil, nil, "")
		if err != nil {
			t.Fatalf("DoAsUser()でエラーが発生: %v", err)
		}
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("StatusCode = %d, want %d", resp.StatusCode, http.StatusNotFound)
		}
	})

	t.Run("クエリ文字列が引き継がれること", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if got := r.URL.Query().Get("page"); got != "2" {
				t.Errorf("page = %q, want %q", got, "2")
			}
			if got := r.URL.Query().Get("status"); got != "done" {
				t.Errorf("status = %q, want %q", got, "done")
			}
			fmt.Fprint(w, `[]`)
		}, "")

		query := url.Values{"page": {"2"}, "status": {"done"}}
		if _, err := client.DoAsUser(context.Background(), "tok", http.MethodGet, "/api/user/transcriptions", query, nil, ""); err != nil {
			t.Fatalf("DoAsUser()でエラーが発生: %v", err)
		}
	})
}

// TestHealth はヘルスチェックを検証する。
func TestHealth(t *testing.T) {
	t.Parallel()

	t.Run("正常時はバックエンドの応答をそのまま返すこと", func(t *testing.T) {
		t.Parallel()

		client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/health" {
				t.Errorf("path = %q, want %q", r.URL.Path, "/health")
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"status":"healthy"}`)
		}, "")

		health := client.Health(context.Background())
		if health["status"] != "healthy" {
			t.Errorf("status = %v, want %q", health["status"], "healthy")
		}
	})

	t.Run("接続失敗時はunhealthyを返すこと", func(t *testing.T) {
		t.Parallel()

		backend := httptest.NewServer(http.NotFoundHandler())
		backend.Close()
		client := New(backend.URL, "", 30*time.Second, 5*time.Second, nil)

		health := client.Health(context.Background())
		if health["status"] != "unhealthy" {
			t.Errorf("status = %v, want %q", health["status"], "unhealthy")
		}
	})
}

// TestWorkerStatuses はワーカー状態の集約を検証する。
func TestWorkerStatuses(t *testing.T) {
	t.Parallel()

	t.Run("正常ワーカーと停止ワーカーの混在を集約できること", func(t *testing.T) {
		t.Parallel()

		healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if got := r.Header.Get("X-Internal-Api-Key"); got != "internal-key" {
				t.Errorf("X-Internal-Api-Key = %q, want %q", got, "internal-key")
			}
			w.Header().Set("Content-Type", "application/json")
			fmt.Fprint(w, `{"instance_name":"worker-1","status":"online","max_workers":4,"active_tasks":2}`)
		}))
		t.Cleanup(healthy.Close)

		dead := httptest.NewServer(http.NotFoundHandler())
		dead.Close()

		client := New("http://localhost:0", "internal-key", 30*time.Second, 5*time.Second, nil)

		statuses, err := client.WorkerStatuses(context.Background(), []string{healthy.URL, dead.URL})
		if err != nil {
			t.Fatalf("WorkerStatuses()でエラーが発生: %v", err)
		}
		if len(statuses) != 2 {
			t.Fatalf("ワーカー数 = %d, want 2", len(statuses))
		}

		if statuses[0].Status != "online" {
			t.Errorf("1台目のStatus = %q, want %q", statuses[0].Status, "online")
		}
		if statuses[0].InstanceName != "worker-1" {
			t.Errorf("1台目のInstanceName = %q, want %q", statuses[0].InstanceName, "worker-1")
		}
		if statuses[1].Status != "offline" {
			t.Errorf("2台目のStatus = %q, want %q", statuses[1].Status, "offline")
		}
		if statuses[1].Error == "" {
			t.Error("2台目のErrorが空")
		}
	})

	t.Run("認証拒否は認証エラーとして報告されること", func(t *testing.T) {
		t.Parallel()

		worker := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusForbidden)
		}))
		t.Cleanup(worker.Close)

		client := New("http://localhost:0", "internal-key", 30*time.Second, 5*time.Second, nil)

		statuses, err := client.WorkerStatuses(context.Background(), []string{worker.URL})
		if err != nil {
			t.Fatalf("WorkerStatuses()でエラーが発生: %v", err)
		}
		if statuses[0].Error != "認証エラー (403)" {
			t.Errorf("Error = %q, want %q", statuses[0].Error, "認証エラー (403)")
		}
	})

	t.Run("内部キー未設定時はErrInternalKeyDisabledを返すこと", func(t *testing.T) {
		t.Parallel()

		client := New("http://localhost:0", "", 30*time.Second, 5*time.Second, nil)

		_, err := client.WorkerStatuses(context.Background(), []string{"http://localhost:1"})
		if !errors.Is(err, ErrInternalKeyDisabled) {
			t.Errorf("err = %v, want ErrInternalKeyDisabled", err)
		}
	})
}
