package identity

import (
	"context"
	"errors"
	"testing"
)

func TestResolveRejectsMissingSubject(t *testing.T) {
	cases := []map[string]any{
		{},
		{"sub": ""},
		{"sub": "   "},
		{"sub": 42},
	}

	for _, claims := range cases {
		if _, err := Resolve(claims, "file-service"); !errors.Is(err, ErrInvalidPrincipal) {
			t.Errorf("Resolve(%v) error = %v, want ErrInvalidPrincipal", claims, err)
		}
	}
}

func TestResolveUsernameFallback(t *testing.T) {
	tests := []struct {
		name   string
		claims map[string]any
		want   string
	}{
		{"preferred_username wins", map[string]any{"sub": "u1", "preferred_username": "alice", "email": "a@b.c"}, "alice"},
		{"email fallback", map[string]any{"sub": "u1", "email": "a@b.c"}, "a@b.c"},
		{"sub fallback", map[string]any{"sub": "u1"}, "u1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Resolve(tt.claims, "file-service")
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}

			if p.Username != tt.want {
				t.Errorf("Username = %q, want %q", p.Username, tt.want)
			}
		})
	}
}

func TestResolveMergesRealmAndClientRoles(t *testing.T) {
	claims := map[string]any{
		"sub": "u1",
		"realm_access": map[string]any{
			"roles": []any{"user", "offline_access"},
		},
		"resource_access": map[string]any{
			"file-service": map[string]any{
				"roles": []any{"workspace_admin", "user"},
			},
			"other-client": map[string]any{
				"roles": []any{"platform_super"},
			},
		},
	}

	p, err := Resolve(claims, "file-service")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	for _, want := range []string{"user", "offline_access", "workspace_admin"} {
		if !p.HasRole(want) {
			t.Errorf("missing role %q", want)
		}
	}

	if p.HasRole("platform_super") {
		t.Error("role from unrelated client must not leak in")
	}

	if !p.IsAdmin() || p.IsSuper() {
		t.Errorf("IsAdmin = %v, IsSuper = %v, want true, false", p.IsAdmin(), p.IsSuper())
	}
}

func TestResolveIgnoresMalformedRoleClaims(t *testing.T) {
	claims := map[string]any{
		"sub":             "u1",
		"realm_access":    "not-a-map",
		"resource_access": map[string]any{"file-service": []any{"bogus"}},
	}

	p, err := Resolve(claims, "file-service")
	if err != nil {
		t.Fatalf("Resolve() error = %v", err)
	}

	if len(p.Roles) != 0 {
		t.Errorf("Roles = %v, want empty", p.Roles)
	}
}

func TestResolveStepUp(t *testing.T) {
	tests := []struct {
		name   string
		claims map[string]any
		want   bool
	}{
		{"no auth claims", map[string]any{"sub": "u1"}, false},
		{"amr otp", map[string]any{"sub": "u1", "amr": []any{"pwd", "otp"}}, true},
		{"amr without otp", map[string]any{"sub": "u1", "amr": []any{"pwd"}}, false},
		{"acr aal2", map[string]any{"sub": "u1", "acr": "aal2"}, true},
		{"acr AAL2 case insensitive", map[string]any{"sub": "u1", "acr": "urn:AAL2"}, true},
		{"acr mfa", map[string]any{"sub": "u1", "acr": "urn:keycloak:mfa"}, true},
		{"acr aal1", map[string]any{"sub": "u1", "acr": "aal1"}, false},
		{"aal claim", map[string]any{"sub": "u1", "aal": "aal2"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Resolve(tt.claims, "file-service")
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}

			if p.StepUpSatisfied != tt.want {
				t.Errorf("StepUpSatisfied = %v, want %v", p.StepUpSatisfied, tt.want)
			}
		})
	}
}

func TestFromBearer(t *testing.T) {
	if _, err := FromBearer(""); !errors.Is(err, ErrNoToken) {
		t.Errorf("empty header error = %v, want ErrNoToken", err)
	}

	if _, err := FromBearer("Basic abc"); !errors.Is(err, ErrNoToken) {
		t.Errorf("basic auth error = %v, want ErrNoToken", err)
	}

	if _, err := FromBearer("Bearer   "); !errors.Is(err, ErrNoToken) {
		t.Errorf("blank token error = %v, want ErrNoToken", err)
	}

	raw, err := FromBearer("Bearer abc.def.ghi")
	if err != nil || raw != "abc.def.ghi" {
		t.Errorf("FromBearer() = %q, %v", raw, err)
	}
}

func TestPrincipalContextRoundTrip(t *testing.T) {
	if got := FromContext(context.Background()); got != nil {
		t.Errorf("FromContext on empty ctx = %v, want nil", got)
	}

	p := &Principal{SubjectID: "u1", Username: "alice"}

	ctx := WithPrincipal(context.Background(), p)
	if got := FromContext(ctx); got != p {
		t.Errorf("FromContext = %v, want %v", got, p)
	}
}
