package google

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"golang.org/x/oauth2"
)

func TestValidateAccountName(t *testing.T) {
	tests := []struct {
		name    string
		account string
		wantErr bool
	}{
		{"valid default", "default", false},
		{"valid work", "work", false},
		{"valid with hyphen", "work-email", false},
		{"valid with underscore", "personal_email", false},
		{"valid alphanumeric", "account123", false},
		{"empty", "", true},
		{"with spaces", "my account", true},
		{"with special chars", "account@work", true},
		{"with slash", "work/personal", true},
		{"with dot", "work.email", true},
		{"traversal", "..", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateAccountName(tt.account)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateAccountName() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestGetTokenFilePath(t *testing.T) {
	cache := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", cache)
	t.Setenv("HOME", cache)

	tests := []struct {
		name    string
		account string
		want    string
	}{
		{"default account", "default", "google-default.token"},
		{"work account", "work", "google-work.token"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := getTokenFilePath(tt.account)
			if filepath.Base(got) != tt.want {
				t.Errorf("getTokenFilePath() = %v, want base %v", got, tt.want)
			}
			if filepath.Base(filepath.Dir(got)) != appDirName {
				t.Errorf("getTokenFilePath() = %v, want parent %v", got, appDirName)
			}
		})
	}
}

func useTempCache(t *testing.T) {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CACHE_HOME", dir)
	t.Setenv("HOME", dir)
}

func TestHasTokenForAccount(t *testing.T) {
	useTempCache(t)

	if HasTokenForAccount("invalid account") {
		t.Error("HasTokenForAccount() should return false for invalid account name")
	}
	if HasTokenForAccount("") {
		t.Error("HasTokenForAccount() should return false for empty account name")
	}
	if HasTokenForAccount("work") {
		t.Error("HasTokenForAccount() should return false before a token is written")
	}

	if err := writeToken("work", &oauth2.Token{AccessToken: "a", RefreshToken: "r"}); err != nil {
		t.Fatalf("writeToken() error = %v", err)
	}
	if !HasTokenForAccount("work") {
		t.Error("HasTokenForAccount() should return true after a token is written")
	}
	if HasToken() {
		t.Error("HasToken() should only look at the default account")
	}
}

func TestWriteTokenPermissions(t *testing.T) {
	useTempCache(t)

	if err := writeToken("default", &oauth2.Token{AccessToken: "a"}); err != nil {
		t.Fatalf("writeToken() error = %v", err)
	}
	info, err := os.Stat(getTokenFilePath("default"))
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("token file mode = %o, want 0600", perm)
	}
}

func TestGetTokenSourceForAccount(t *testing.T) {
	useTempCache(t)
	ctx := context.Background()

	if _, err := GetTokenSourceForAccount(ctx, "default"); err != ErrNoToken {
		t.Errorf("GetTokenSourceForAccount() without token error = %v, want ErrNoToken", err)
	}

	want := &oauth2.Token{
		AccessToken:  "access",
		RefreshToken: "refresh",
		Expiry:       time.Now().Add(time.Hour),
	}
	if err := writeToken("default", want); err != nil {
		t.Fatal(err)
	}

	ts, err := GetTokenSourceForAccount(ctx, "default")
	if err != nil {
		t.Fatalf("GetTokenSourceForAccount() error = %v", err)
	}
	got, err := ts.Token()
	if err != nil {
		t.Fatal(err)
	}
	if got.AccessToken != "access" || got.TokenType != "Bearer" {
		t.Errorf("token = %+v, want access token %q of type Bearer", got, "access")
	}
}

func TestReadTokenRejectsGarbage(t *testing.T) {
	useTempCache(t)

	if err := os.MkdirAll(tokenDir(), 0700); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(getTokenFilePath("default"), []byte("not json"), 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := readToken("default"); err == nil || !strings.Contains(err.Error(), "invalid token format") {
		t.Errorf("readToken() error = %v, want invalid token format", err)
	}

	empty, _ := json.Marshal(oauth2.Token{})
	if err := os.WriteFile(getTokenFilePath("default"), empty, 0600); err != nil {
		t.Fatal(err)
	}
	if _, err := readToken("default"); err == nil {
		t.Error("readToken() should reject a token without credentials")
	}
}

func TestGetAuthURLForAccount(t *testing.T) {
	t.Setenv(EnvClientID, "client-123")

	url := GetAuthURLForAccount("work")
	for _, want := range []string{"client_id=client-123", "state=work", "access_type=offline", "gmail.readonly"} {
		if !strings.Contains(url, want) {
			t.Errorf("GetAuthURLForAccount() = %q, missing %q", url, want)
		}
	}
}

func TestGetAuthenticationErrorMessage(t *testing.T) {
	for _, account := range []string{"default", "work", "personal"} {
		t.Run(account, func(t *testing.T) {
			msg := GetAuthenticationErrorMessage(account)
			if !strings.Contains(msg, account) {
				t.Errorf("GetAuthenticationErrorMessage() should mention account %s", account)
			}
			if !strings.Contains(msg, "OAuth") {
				t.Error("GetAuthenticationErrorMessage() should mention OAuth")
			}
			if !strings.Contains(msg, "google_save_auth_code") {
				t.Error("GetAuthenticationErrorMessage() should name the save tool")
			}
		})
	}
}

func TestFileTokenProvider(t *testing.T) {
	useTempCache(t)
	p := NewFileTokenProvider()

	if p.HasTokenForAccount("default") {
		t.Fatal("HasTokenForAccount() = true before a token exists")
	}
	if err := writeToken("default", &oauth2.Token{AccessToken: "x", Expiry: time.Now().Add(time.Hour)}); err != nil {
		t.Fatal(err)
	}
	tok, err := p.GetTokenForAccount(context.Background(), "default")
	if err != nil {
		t.Fatalf("GetTokenForAccount() error = %v", err)
	}
	if tok.AccessToken != "x" {
		t.Errorf("AccessToken = %q, want %q", tok.AccessToken, "x")
	}
}
