package platform_test

import (
	"context"
	"errors"
	"testing"

	"github.com/amirValiulla32/gaza-journalist-classifier/internal/platform"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/services"
	"github.com/amirValiulla32/gaza-journalist-classifier/internal/testsupport"
)

func TestFetchClassifiesDownloadErrors(t *testing.T) {
	cases := []struct {
		name     string
		stderr   string
		wantKind string
	}{
		{"auth wall", "ERROR: NSFW tweet requires authentication", "auth_required"},
		{"login required", "ERROR: Login required to access this content", "auth_required"},
		{"rate limited", "ERROR: HTTP Error 429: Too Many Requests", "rate_limited"},
		{"deleted tweet", "ERROR: This tweet has been deleted", "removed"},
		{"suspended account", "ERROR: This account has been suspended", "removed"},
		{"missing", "ERROR: HTTP Error 404: Not Found", "not_found"},
		{"unsupported", "ERROR: Unsupported URL: https://example.com", "not_found"},
		{"network blip", "ERROR: Unable to download webpage: connection reset", "transient"},
	}

	cfg := testsupport.NewConfig(t)
	gateway := platform.NewYtDlp(cfg)

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			stderr := tc.stderr
			restore := gateway.SetRunner(func(ctx context.Context, binary string, args ...string) ([]byte, []byte, error) {
				return nil, []byte(stderr + "\n"), errors.New("exit status 1")
			})
			defer restore()

			_, _, err := gateway.Fetch(context.Background(), "https://x.com/user/status/1", t.TempDir())
			if err == nil {
				t.Fatal("expected fetch to fail")
			}
			if kind := services.Kind(err); kind != tc.wantKind {
				t.Fatalf("got kind %q, want %q (err: %v)", kind, tc.wantKind, err)
			}
		})
	}
}

func TestFetchTimeoutIsTransient(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	gateway := platform.NewYtDlp(cfg)
	restore := gateway.SetRunner(func(ctx context.Context, binary string, args ...string) ([]byte, []byte, error) {
		return nil, nil, context.DeadlineExceeded
	})
	defer restore()

	_, _, err := gateway.Fetch(context.Background(), "https://x.com/user/status/1", t.TempDir())
	if services.Kind(err) != "transient" {
		t.Fatalf("timeout must be retryable, got %v", err)
	}
	if !services.Retryable(err) {
		t.Fatal("transient errors must be retryable")
	}
}

func TestFetchRejectsEmptyURL(t *testing.T) {
	cfg := testsupport.NewConfig(t)
	gateway := platform.NewYtDlp(cfg)

	_, _, err := gateway.Fetch(context.Background(), "   ", t.TempDir())
	if services.Kind(err) != "validation" {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestFetchErrorHints(t *testing.T) {
	authErr := services.Wrap(services.ErrAuthRequired, "fetch", "download", "login wall", nil)
	if hint := platform.FetchError(authErr); hint == "" {
		t.Fatal("auth failures should carry an operator hint")
	}
	plain := errors.New("boom")
	if hint := platform.FetchError(plain); hint != "" {
		t.Fatalf("unclassified errors have no hint, got %q", hint)
	}
}
