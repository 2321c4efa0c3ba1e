package service

import (
	"context"
	"errors"
	"fmt"
	"github.com/nonvenomous/nextcloud-video-tag-cli/internal/dto"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func ocsBody(code int, message, data string) string {
	return fmt.Sprintf(`{"ocs":{"meta":{"status":"ok","statuscode":%d,"message":%q},"data":%s}}`, code, message, data)
}

func testShareRequest() dto.ShareRequest {
	return dto.ShareRequest{
		Path:     "/Videos/clip.mp4",
		Username: "alice",
		Password: "secret",
	}
}

func TestCreateShare(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("method = %s, want POST", r.Method)
		}
		if r.URL.Path != sharesEndpoint {
			t.Errorf("path = %s, want %s", r.URL.Path, sharesEndpoint)
		}
		headers := map[string]string{
			"OCS-APIRequest": "true",
			"Content-Type":   "application/x-www-form-urlencoded",
			"Accept":         "application/json",
		}
		for k, want := range headers {
			if got := r.Header.Get(k); got != want {
				t.Errorf("header %s = %q, want %q", k, got, want)
			}
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "alice" || pass != "secret" {
			t.Errorf("basic auth = %q, %q, %v", user, pass, ok)
		}
		if err := r.ParseForm(); err != nil {
			t.Error(err)
			return
		}
		form := map[string]string{
			"path":        "/Videos/clip.mp4",
			"shareType":   "3",
			"permissions": "1",
			"label":       ShareLabel,
		}
		for k, want := range form {
			if got := r.PostForm.Get(k); got != want {
				t.Errorf("form %s = %q, want %q", k, got, want)
			}
		}
		if _, ok := r.PostForm["password"]; ok {
			t.Errorf("password field sent without a share password")
		}
		fmt.Fprint(w, ocsBody(200, "OK", `{"id":"42","token":"abc123","url":"https://example.com/s/abc123"}`))
	}))
	defer srv.Close()

	res, err := NewNextcloudService(srv.URL, time.Second, 0).CreateShare(context.Background(), testShareRequest())
	if err != nil {
		t.Fatalf("CreateShare() = %v", err)
	}
	if res.Token != "abc123" {
		t.Errorf("Token = %q, want %q", res.Token, "abc123")
	}
	if res.URL != "https://example.com/s/abc123" {
		t.Errorf("URL = %q", res.URL)
	}
}

func TestCreateShareWithPassword(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Error(err)
			return
		}
		if got := r.PostForm.Get("password"); got != "hunter2" {
			t.Errorf("password = %q, want %q", got, "hunter2")
		}
		fmt.Fprint(w, ocsBody(100, "OK", `{"token":"legacy"}`))
	}))
	defer srv.Close()

	req := testShareRequest()
	req.SharePassword = "hunter2"
	res, err := NewNextcloudService(srv.URL, time.Second, 0).CreateShare(context.Background(), req)
	if err != nil {
		t.Fatalf("CreateShare() = %v", err)
	}
	if res.Token != "legacy" {
		t.Errorf("Token = %q, want %q", res.Token, "legacy")
	}
}

func TestCreateShareRejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, ocsBody(403, "Forbidden", `[]`))
	}))
	defer srv.Close()

	_, err := NewNextcloudService(srv.URL, time.Second, 0).CreateShare(context.Background(), testShareRequest())
	var shareErr *ShareCreationError
	if !errors.As(err, &shareErr) {
		t.Fatalf("CreateShare() error = %v, want *ShareCreationError", err)
	}
	if shareErr.Message != "Forbidden" || shareErr.Code != 403 {
		t.Errorf("ShareCreationError = %+v", shareErr)
	}
}

func TestCreateShareEmptyToken(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, ocsBody(200, "OK", `{"token":""}`))
	}))
	defer srv.Close()

	_, err := NewNextcloudService(srv.URL, time.Second, 0).CreateShare(context.Background(), testShareRequest())
	var shareErr *ShareCreationError
	if !errors.As(err, &shareErr) {
		t.Fatalf("CreateShare() error = %v, want *ShareCreationError", err)
	}
}

func TestCreateShareHTTPError(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusInternalServerError)
		fmt.Fprint(w, "<html>not json</html>")
	}))
	defer srv.Close()

	_, err := NewNextcloudService(srv.URL, time.Second, 0).CreateShare(context.Background(), testShareRequest())
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("CreateShare() error = %v, want *NetworkError", err)
	}
	if netErr.StatusCode != http.StatusInternalServerError {
		t.Errorf("StatusCode = %d, want 500", netErr.StatusCode)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Errorf("server hit %d times, want 1", n)
	}
}

func TestCreateShareClientErrorNotRetried(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	_, err := NewNextcloudService(srv.URL, time.Second, 3).CreateShare(context.Background(), testShareRequest())
	var netErr *NetworkError
	if !errors.As(err, &netErr) || netErr.StatusCode != http.StatusUnauthorized {
		t.Fatalf("CreateShare() error = %v, want 401 *NetworkError", err)
	}
	if n := atomic.LoadInt32(&hits); n != 1 {
		t.Errorf("server hit %d times, want 1", n)
	}
}

func TestCreateShareRetries(t *testing.T) {
	defer func(d time.Duration) { retryDelay = d }(retryDelay)
	retryDelay = time.Millisecond

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, ocsBody(200, "OK", `{"token":"third-time"}`))
	}))
	defer srv.Close()

	res, err := NewNextcloudService(srv.URL, time.Second, 2).CreateShare(context.Background(), testShareRequest())
	if err != nil {
		t.Fatalf("CreateShare() = %v", err)
	}
	if res.Token != "third-time" {
		t.Errorf("Token = %q", res.Token)
	}
	if n := atomic.LoadInt32(&hits); n != 3 {
		t.Errorf("server hit %d times, want 3", n)
	}
}

func TestCreateShareRetriesExhausted(t *testing.T) {
	defer func(d time.Duration) { retryDelay = d }(retryDelay)
	retryDelay = time.Millisecond

	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	_, err := NewNextcloudService(srv.URL, time.Second, 1).CreateShare(context.Background(), testShareRequest())
	var netErr *NetworkError
	if !errors.As(err, &netErr) || netErr.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("CreateShare() error = %v, want 503 *NetworkError", err)
	}
	if n := atomic.LoadInt32(&hits); n != 2 {
		t.Errorf("server hit %d times, want 2", n)
	}
}

func TestCreateShareTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	addr := srv.URL
	srv.Close()

	_, err := NewNextcloudService(addr, time.Second, 0).CreateShare(context.Background(), testShareRequest())
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("CreateShare() error = %v, want *NetworkError", err)
	}
	if netErr.Err == nil || netErr.StatusCode != 0 {
		t.Errorf("NetworkError = %+v, want a wrapped transport error", netErr)
	}
}

func TestCreateShareTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	_, err := NewNextcloudService(srv.URL, 50*time.Millisecond, 0).CreateShare(context.Background(), testShareRequest())
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("CreateShare() error = %v, want *NetworkError", err)
	}
}

func TestCreateShareNonJSONBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		fmt.Fprint(w, "<html><body>Login</body></html>")
	}))
	defer srv.Close()

	_, err := NewNextcloudService(srv.URL, time.Second, 0).CreateShare(context.Background(), testShareRequest())
	var netErr *NetworkError
	if !errors.As(err, &netErr) {
		t.Fatalf("CreateShare() error = %v (%T), want *NetworkError", err, err)
	}
	if netErr.StatusCode != http.StatusOK || netErr.Err == nil {
		t.Errorf("NetworkError = %+v", netErr)
	}
}

func TestCreateShareMalformedData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, ocsBody(200, "OK", `"not an object"`))
	}))
	defer srv.Close()

	_, err := NewNextcloudService(srv.URL, time.Second, 0).CreateShare(context.Background(), testShareRequest())
	var shareErr *ShareCreationError
	if !errors.As(err, &shareErr) {
		t.Fatalf("CreateShare() error = %v (%T), want *ShareCreationError", err, err)
	}
}
