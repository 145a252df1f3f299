package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/go-cmp/cmp"
	"go.uber.org/zap"

	"tracker/pkg/tracker"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeReceiver struct {
	authorized bool
	err        error
	codes      []string

	dialogs    []tracker.Peer
	dialogsErr error
}

func (f *fakeReceiver) Dialogs(context.Context) ([]tracker.Peer, error) {
	return f.dialogs, f.dialogsErr
}

func (f *fakeReceiver) SubmitCode(ctx context.Context, code string) error {
	if f.err != nil {
		return f.err
	}
	f.codes = append(f.codes, code)
	return nil
}

func (f *fakeReceiver) Authorized() bool { return f.authorized }

func do(t *testing.T, s *APIServer, method, path, body string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return w, out
}

func TestAuthCode_Accepted(t *testing.T) {
	r := &fakeReceiver{}
	s := NewAPIServer(r, zap.NewNop())

	w, _ := do(t, s, http.MethodPost, "/auth/code", `{"code":"12345"}`)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", w.Code)
	}
	if diff := cmp.Diff([]string{"12345"}, r.codes); diff != "" {
		t.Errorf("codes mismatch (-want +got):\n%s", diff)
	}
}

func TestAuthCode_Errors(t *testing.T) {
	tests := []struct {
		name     string
		receiver *fakeReceiver
		body     string
		want     int
	}{
		{"missing code", &fakeReceiver{}, `{}`, http.StatusBadRequest},
		{"malformed", &fakeReceiver{}, `{`, http.StatusBadRequest},
		{"already authorized", &fakeReceiver{authorized: true}, `{"code":"1"}`, http.StatusConflict},
		{"client not waiting", &fakeReceiver{err: context.DeadlineExceeded}, `{"code":"1"}`, http.StatusServiceUnavailable},
		{"other failure", &fakeReceiver{err: errors.New("boom")}, `{"code":"1"}`, http.StatusServiceUnavailable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewAPIServer(tt.receiver, zap.NewNop())
			w, out := do(t, s, http.MethodPost, "/auth/code", tt.body)
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			if _, ok := out["error"]; !ok {
				t.Errorf("response has no error field: %v", out)
			}
		})
	}
}

func TestHealth(t *testing.T) {
	s := NewAPIServer(&fakeReceiver{authorized: true}, zap.NewNop())

	w, out := do(t, s, http.MethodGet, "/healthz", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	want := map[string]any{"status": "ok", "authorized": true}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("body mismatch (-want +got):\n%s", diff)
	}
}

func TestStart_ShutsDownOnCancel(t *testing.T) {
	s := NewAPIServer(&fakeReceiver{}, zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Start(ctx, "127.0.0.1:0") }()

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Start() = %v", err)
	}
}

func TestGetChats(t *testing.T) {
	r := &fakeReceiver{authorized: true, dialogs: []tracker.Peer{
		{Kind: tracker.PeerUser, ID: 777, FirstName: "Alice", Username: "alice"},
		{Kind: tracker.PeerChat, ID: 4242, Title: "Family"},
		{Kind: tracker.PeerChannel, ID: 55, Title: "Logs"},
	}}
	s := NewAPIServer(r, zap.NewNop())

	w, out := do(t, s, http.MethodGet, "/chats", "")
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d", w.Code)
	}
	want := map[string]any{"chats": []any{
		map[string]any{"id": float64(777), "kind": "user", "name": "Alice", "username": "alice"},
		map[string]any{"id": float64(-4242), "kind": "chat", "name": "Family"},
		map[string]any{"id": float64(-1000000000055), "kind": "channel", "name": "Logs"},
	}}
	if diff := cmp.Diff(want, out); diff != "" {
		t.Errorf("body mismatch (-want +got):\n%s", diff)
	}
}

func TestGetChats_Errors(t *testing.T) {
	tests := []struct {
		name     string
		receiver *fakeReceiver
		want     int
	}{
		{"not authorized", &fakeReceiver{}, http.StatusServiceUnavailable},
		{"dialogs failed", &fakeReceiver{authorized: true, dialogsErr: errors.New("FLOOD_WAIT")}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w, out := do(t, NewAPIServer(tt.receiver, zap.NewNop()), http.MethodGet, "/chats", "")
			if w.Code != tt.want {
				t.Errorf("status = %d, want %d", w.Code, tt.want)
			}
			if _, ok := out["error"]; !ok {
				t.Errorf("response has no error field: %v", out)
			}
		})
	}
}
