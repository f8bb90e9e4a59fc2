package google

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

const oauthClientJSON = `{
  "installed": {
    "client_id": "client-id",
    "client_secret": "client-secret",
    "redirect_uris": ["http://localhost"],
    "auth_uri": "https://accounts.google.com/o/oauth2/auth",
    "token_uri": "https://oauth2.googleapis.com/token"
  }
}`

const oauthTokenJSON = `{
  "access_token": "access",
  "token_type": "Bearer",
  "refresh_token": "refresh",
  "expiry": "2030-01-01T00:00:00Z"
}`

func clearCredentialEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"GOOGLE_SERVICE_ACCOUNT_JSON",
		"GOOGLE_SERVICE_ACCOUNT_FILE",
		"GOOGLE_APPLICATION_CREDENTIALS",
		"GOOGLE_OAUTH_CLIENT_JSON",
		"GOOGLE_OAUTH_CLIENT_FILE",
		"GOOGLE_OAUTH_TOKEN_JSON",
		"GOOGLE_OAUTH_TOKEN_FILE",
	} {
		t.Setenv(key, "")
	}
}

func TestNewRequiresSpreadsheetID(t *testing.T) {
	clearCredentialEnv(t)
	if _, err := New(context.Background(), "  "); err == nil {
		t.Fatal("expected error for blank spreadsheet id")
	}
}

func TestCredentialOptionsRequireSomeCredentials(t *testing.T) {
	clearCredentialEnv(t)
	_, err := credentialOptions(context.Background())
	if err == nil {
		t.Fatal("expected error without any credentials")
	}
	if !strings.Contains(err.Error(), "missing credentials") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestCredentialOptionsServiceAccount(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("GOOGLE_SERVICE_ACCOUNT_JSON", `{"type":"service_account"}`)

	opts, err := credentialOptions(context.Background())
	if err != nil {
		t.Fatalf("credentialOptions: %v", err)
	}
	if len(opts) != 2 {
		t.Fatalf("expected credentials and scope options, got %d", len(opts))
	}
}

func TestCredentialOptionsOAuth(t *testing.T) {
	clearCredentialEnv(t)
	dir := t.TempDir()
	clientFile := filepath.Join(dir, "client.json")
	tokenFile := filepath.Join(dir, "token.json")
	if err := os.WriteFile(clientFile, []byte(oauthClientJSON), 0600); err != nil {
		t.Fatalf("write client file: %v", err)
	}
	if err := os.WriteFile(tokenFile, []byte(oauthTokenJSON), 0600); err != nil {
		t.Fatalf("write token file: %v", err)
	}
	t.Setenv("GOOGLE_OAUTH_CLIENT_FILE", clientFile)
	t.Setenv("GOOGLE_OAUTH_TOKEN_FILE", tokenFile)

	opts, err := credentialOptions(context.Background())
	if err != nil {
		t.Fatalf("credentialOptions: %v", err)
	}
	if len(opts) != 1 {
		t.Fatalf("expected a single http client option, got %d", len(opts))
	}
}

func TestCredentialOptionsOAuthTokenFromEnv(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("GOOGLE_OAUTH_CLIENT_JSON", oauthClientJSON)
	t.Setenv("GOOGLE_OAUTH_TOKEN_JSON", oauthTokenJSON)

	if _, err := credentialOptions(context.Background()); err != nil {
		t.Fatalf("credentialOptions: %v", err)
	}
}

func TestCredentialOptionsOAuthMissingToken(t *testing.T) {
	clearCredentialEnv(t)
	t.Setenv("GOOGLE_OAUTH_CLIENT_JSON", oauthClientJSON)
	t.Setenv("GOOGLE_OAUTH_TOKEN_FILE", filepath.Join(t.TempDir(), "absent.json"))

	_, err := credentialOptions(context.Background())
	if err == nil {
		t.Fatal("expected error when the oauth token file is missing")
	}
	if !strings.Contains(err.Error(), "oauth token") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestQuoteSheetEscapesTitles(t *testing.T) {
	cases := map[string]string{
		"Clientes":     "'Clientes'",
		"Juan Perez":   "'Juan Perez'",
		"O'Brien 2024": "'O''Brien 2024'",
	}
	for in, want := range cases {
		if got := quoteSheet(in); got != want {
			t.Errorf("quoteSheet(%q) = %q, want %q", in, got, want)
		}
	}
}
