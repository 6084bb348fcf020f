package rest

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/codeprac/authkit"
)

func newTestClient(t *testing.T, handler http.Handler) (*Client, *httptest.Server) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	client, err := New(server.URL)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client, server
}

func writeUser(w http.ResponseWriter, u *authkit.User) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{"user": u})
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]any{"message": msg})
}

func sampleUser() *authkit.User {
	return &authkit.User{ID: 1, FirstName: "Ada", EmailID: "a@b.com", Role: "user"}
}

func TestClient_New_InvalidURL(t *testing.T) {
	tests := []string{"", "not a url", "/just/a/path"}
	for _, tt := range tests {
		if _, err := New(tt); err == nil {
			t.Errorf("New(%q) should have failed", tt)
		}
	}
}

func TestClient_Login_Success(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/user/login" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}

		var creds authkit.Credentials
		json.NewDecoder(r.Body).Decode(&creds)
		if creds.EmailID != "a@b.com" {
			t.Errorf("emailId = %v, want a@b.com", creds.EmailID)
		}
		if creds.Password != "Passw0rd!" {
			t.Errorf("password = %v, want Passw0rd!", creds.Password)
		}

		http.SetCookie(w, &http.Cookie{Name: "token", Value: "session-token", Path: "/"})
		writeUser(w, sampleUser())
	}))

	u, err := client.Login(context.Background(), authkit.Credentials{EmailID: "a@b.com", Password: "Passw0rd!"})
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if u.ID != 1 || u.EmailID != "a@b.com" {
		t.Errorf("user = %+v, want id 1, a@b.com", u)
	}
}

func TestClient_Login_InvalidCredentials(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusUnauthorized, "Invalid credentials")
	}))

	_, err := client.Login(context.Background(), authkit.Credentials{EmailID: "a@b.com", Password: "wrong"})
	if err == nil {
		t.Fatal("Login() should have failed")
	}

	ae, ok := err.(*authkit.Error)
	if !ok {
		t.Fatalf("error type = %T, want *authkit.Error", err)
	}
	if ae.Kind != authkit.KindAuth {
		t.Errorf("Kind = %v, want auth", ae.Kind)
	}
	if ae.Message != "Invalid credentials" {
		t.Errorf("Message = %v, want server message verbatim", ae.Message)
	}
}

func TestClient_Login_FallbackMessageWithoutBody(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))

	_, err := client.Login(context.Background(), authkit.Credentials{EmailID: "a@b.com", Password: "x"})
	if err == nil {
		t.Fatal("Login() should have failed")
	}
	if ae := err.(*authkit.Error); ae.Message != "Login failed" {
		t.Errorf("Message = %v, want generic fallback", ae.Message)
	}
}

func TestClient_Login_ServerErrorIsNetworkKind(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeMessage(w, http.StatusInternalServerError, "database down")
	}))

	_, err := client.Login(context.Background(), authkit.Credentials{EmailID: "a@b.com", Password: "x"})
	if ae := err.(*authkit.Error); ae.Kind != authkit.KindNetwork {
		t.Errorf("Kind = %v, want network for 5xx", ae.Kind)
	}
}

func TestClient_TransportFailureIsNetworkKind(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	client, err := New(server.URL)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	server.Close()

	_, err = client.Check(context.Background())
	if err == nil {
		t.Fatal("Check() should have failed")
	}
	if ae := err.(*authkit.Error); ae.Kind != authkit.KindNetwork {
		t.Errorf("Kind = %v, want network", ae.Kind)
	}
}

func TestClient_CookiePersistsAcrossCalls(t *testing.T) {
	var checkCookie string
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/user/login":
			http.SetCookie(w, &http.Cookie{Name: "token", Value: "session-token", Path: "/"})
			writeUser(w, sampleUser())
		case "/user/check":
			if ck, err := r.Cookie("token"); err == nil {
				checkCookie = ck.Value
			}
			writeUser(w, sampleUser())
		default:
			t.Errorf("unexpected path: %s", r.URL.Path)
		}
	}))

	ctx := context.Background()
	if _, err := client.Login(ctx, authkit.Credentials{EmailID: "a@b.com", Password: "x"}); err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if _, err := client.Check(ctx); err != nil {
		t.Fatalf("Check() error = %v", err)
	}

	if checkCookie != "session-token" {
		t.Errorf("check cookie = %q, want session-token carried from login", checkCookie)
	}
}

func TestClient_Check_MissingUserIsError(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`))
	}))

	if _, err := client.Check(context.Background()); err == nil {
		t.Error("Check() with no user record should fail")
	}
}

func TestClient_SendOTP_RequestShape(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/user/send-otp" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var reg authkit.Registration
		json.NewDecoder(r.Body).Decode(&reg)
		if reg.EmailID != "a@b.com" || reg.FirstName != "Ada" {
			t.Errorf("payload = %+v", reg)
		}
		json.NewEncoder(w).Encode(map[string]any{"success": true, "message": "OTP sent"})
	}))

	err := client.SendOTP(context.Background(), authkit.Registration{
		FirstName: "Ada", LastName: "Lovelace", EmailID: "a@b.com", Password: "Passw0rd!",
	})
	if err != nil {
		t.Fatalf("SendOTP() error = %v", err)
	}
}

func TestClient_VerifyOTP_RequestShape(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/user/verify-otp" {
			t.Errorf("path = %s, want /user/verify-otp", r.URL.Path)
		}
		body, _ := io.ReadAll(r.Body)
		var req map[string]string
		json.Unmarshal(body, &req)
		if req["emailId"] != "a@b.com" || req["otp"] != "123456" {
			t.Errorf("body = %s", body)
		}
		writeUser(w, sampleUser())
	}))

	u, err := client.VerifyOTP(context.Background(), "a@b.com", "123456")
	if err != nil {
		t.Fatalf("VerifyOTP() error = %v", err)
	}
	if u == nil {
		t.Fatal("VerifyOTP() returned nil user")
	}
}

func TestClient_OAuthExchanges(t *testing.T) {
	tests := []struct {
		name     string
		wantPath string
		call     func(c *Client) (*authkit.User, error)
	}{
		{"google", "/user/google", func(c *Client) (*authkit.User, error) {
			return c.GoogleExchange(context.Background(), "code-123")
		}},
		{"github", "/user/github/callback", func(c *Client) (*authkit.User, error) {
			return c.GithubExchange(context.Background(), "code-123")
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != tt.wantPath {
					t.Errorf("path = %s, want %s", r.URL.Path, tt.wantPath)
				}
				if got := r.URL.Query().Get("code"); got != "code-123" {
					t.Errorf("code = %v, want code-123", got)
				}
				writeUser(w, sampleUser())
			}))

			u, err := tt.call(client)
			if err != nil {
				t.Fatalf("%s exchange error = %v", tt.name, err)
			}
			if u == nil {
				t.Fatal("exchange returned nil user")
			}
		})
	}
}

func TestClient_GithubAuthorizeURL(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/user/github" {
			t.Errorf("path = %s, want /user/github", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"url":     "https://github.com/login/oauth/authorize?client_id=abc",
		})
	}))

	got, err := client.GithubAuthorizeURL(context.Background())
	if err != nil {
		t.Fatalf("GithubAuthorizeURL() error = %v", err)
	}
	if got != "https://github.com/login/oauth/authorize?client_id=abc" {
		t.Errorf("url = %v", got)
	}
}

func TestClient_GithubAuthorizeURL_MissingURL(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"success": false})
	}))

	if _, err := client.GithubAuthorizeURL(context.Background()); err == nil {
		t.Error("GithubAuthorizeURL() without a url should fail")
	}
}

func TestClient_ChangePassword(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/user/password" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["currentPassword"] != "oldpassword" || body["newPassword"] != "newpassword" {
			t.Errorf("body = %v", body)
		}
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))

	err := client.ChangePassword(context.Background(), authkit.PasswordChange{
		CurrentPassword: "oldpassword",
		NewPassword:     "newpassword",
		ConfirmPassword: "newpassword",
	})
	if err != nil {
		t.Fatalf("ChangePassword() error = %v", err)
	}
}

func TestClient_DeleteAccount_SendsBody(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodDelete || r.URL.Path != "/user/account" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["password"] != "Passw0rd!" {
			t.Errorf("password = %v, want Passw0rd!", body["password"])
		}
		json.NewEncoder(w).Encode(map[string]any{"success": true})
	}))

	if err := client.DeleteAccount(context.Background(), "Passw0rd!"); err != nil {
		t.Fatalf("DeleteAccount() error = %v", err)
	}
}

func TestClient_UpdateProfile(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/user/profile" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		u := sampleUser()
		u.FirstName = "Augusta"
		writeUser(w, u)
	}))

	u, err := client.UpdateProfile(context.Background(), authkit.ProfileUpdate{FirstName: "Augusta"})
	if err != nil {
		t.Fatalf("UpdateProfile() error = %v", err)
	}
	if u.FirstName != "Augusta" {
		t.Errorf("FirstName = %v, want Augusta", u.FirstName)
	}
}

func TestClient_WithTimeout(t *testing.T) {
	client, err := New("http://localhost:9", WithTimeout(30*time.Second))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if client.httpClient.Timeout != 30*time.Second {
		t.Errorf("timeout = %v, want 30s", client.httpClient.Timeout)
	}
}

func TestClient_ContextCancellation(t *testing.T) {
	client, _ := newTestClient(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Check(ctx)
	if err == nil {
		t.Fatal("Check() with canceled context should fail")
	}
	if ae := err.(*authkit.Error); ae.Kind != authkit.KindNetwork {
		t.Errorf("Kind = %v, want network", ae.Kind)
	}
}
