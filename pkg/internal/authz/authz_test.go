package authz

import (
	"testing"

	"github.com/yeisme/filevault/pkg/internal/identity"
)

func principalWith(sub string, stepUp bool, roles ...string) *identity.Principal {
	p := &identity.Principal{
		SubjectID:       sub,
		Username:        sub,
		Roles:           make(map[string]struct{}),
		StepUpSatisfied: stepUp,
	}
	for _, r := range roles {
		p.Roles[r] = struct{}{}
	}

	return p
}

func TestEvaluateListAllFiles(t *testing.T) {
	tests := []struct {
		name string
		p    *identity.Principal
		want Decision
	}{
		{"nil principal", nil, Deny},
		{"plain user", principalWith("u1", false, identity.RoleUser), Deny},
		{"plain user with otp", principalWith("u1", true, identity.RoleUser), Deny},
		{"admin without otp", principalWith("a1", false, identity.RoleWorkspaceAdmin), StepUp},
		{"admin with otp", principalWith("a1", true, identity.RoleWorkspaceAdmin), Allow},
		{"super without otp", principalWith("s1", false, identity.RolePlatformSuper), Allow},
		{"super and admin without otp", principalWith("s1", false, identity.RolePlatformSuper, identity.RoleWorkspaceAdmin), Allow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Evaluate(tt.p, ActionListAllFiles, Resource{}); got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateMissingResource(t *testing.T) {
	p := principalWith("s1", true, identity.RolePlatformSuper)

	actions := []Action{
		ActionViewMetadata, ActionViewContent, ActionDownload,
		ActionDelete, ActionLock, ActionUnlock, ActionCreatePublicShare,
	}

	for _, a := range actions {
		if got := Evaluate(p, a, Resource{Exists: false}); got != NotFound {
			t.Errorf("Evaluate(%v) on missing resource = %v, want NotFound", a, got)
		}
	}
}

func TestEvaluateViewMetadata(t *testing.T) {
	res := Resource{Exists: true, OwnerID: "owner"}

	tests := []struct {
		name string
		p    *identity.Principal
		res  Resource
		want Decision
	}{
		{"owner", principalWith("owner", false, identity.RoleUser), res, Allow},
		{"admin", principalWith("a1", false, identity.RoleWorkspaceAdmin), res, Allow},
		{"super", principalWith("s1", false, identity.RolePlatformSuper), res, Allow},
		{"stranger", principalWith("u2", false, identity.RoleUser), res, Deny},
		{"shared with actor", principalWith("u2", false, identity.RoleUser), Resource{Exists: true, OwnerID: "owner", SharedWithActor: true}, Allow},
		{"locked does not block metadata", principalWith("owner", false, identity.RoleUser), Resource{Exists: true, OwnerID: "owner", Locked: true}, Allow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Evaluate(tt.p, ActionViewMetadata, tt.res); got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateContentAccess(t *testing.T) {
	tests := []struct {
		name string
		p    *identity.Principal
		res  Resource
		want Decision
	}{
		{"owner unlocked", principalWith("owner", false, identity.RoleUser), Resource{Exists: true, OwnerID: "owner"}, Allow},
		{"owner locked", principalWith("owner", false, identity.RoleUser), Resource{Exists: true, OwnerID: "owner", Locked: true}, Locked},
		{"admin locked", principalWith("a1", true, identity.RoleWorkspaceAdmin), Resource{Exists: true, OwnerID: "owner", Locked: true}, Locked},
		{"stranger unlocked", principalWith("u2", false, identity.RoleUser), Resource{Exists: true, OwnerID: "owner"}, Deny},
		{"stranger locked stays deny", principalWith("u2", false, identity.RoleUser), Resource{Exists: true, OwnerID: "owner", Locked: true}, Deny},
		{"shared recipient unlocked", principalWith("u2", false, identity.RoleUser), Resource{Exists: true, OwnerID: "owner", SharedWithActor: true}, Allow},
		{"shared recipient locked", principalWith("u2", false, identity.RoleUser), Resource{Exists: true, OwnerID: "owner", Locked: true, SharedWithActor: true}, Locked},
	}

	for _, action := range []Action{ActionViewContent, ActionDownload} {
		for _, tt := range tests {
			t.Run(action.String()+"/"+tt.name, func(t *testing.T) {
				if got := Evaluate(tt.p, action, tt.res); got != tt.want {
					t.Errorf("Evaluate() = %v, want %v", got, tt.want)
				}
			})
		}
	}
}

func TestEvaluateDelete(t *testing.T) {
	res := Resource{Exists: true, OwnerID: "owner"}

	tests := []struct {
		name string
		p    *identity.Principal
		want Decision
	}{
		{"owner without otp", principalWith("owner", false, identity.RoleUser), StepUp},
		{"owner with otp", principalWith("owner", true, identity.RoleUser), Allow},
		{"admin cannot delete others", principalWith("a1", true, identity.RoleWorkspaceAdmin), Deny},
		{"super cannot delete others", principalWith("s1", true, identity.RolePlatformSuper), Deny},
		{"super owner without otp", principalWith("owner", false, identity.RolePlatformSuper), Allow},
		{"stranger", principalWith("u2", true, identity.RoleUser), Deny},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Evaluate(tt.p, ActionDelete, res); got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestEvaluateLockToggle(t *testing.T) {
	res := Resource{Exists: true, OwnerID: "owner"}

	tests := []struct {
		name string
		p    *identity.Principal
		want Decision
	}{
		{"owner user role without otp", principalWith("owner", false, identity.RoleUser), StepUp},
		{"owner user role with otp", principalWith("owner", true, identity.RoleUser), Allow},
		{"owner without known role", principalWith("owner", false), Allow},
		{"owner admin without otp", principalWith("owner", false, identity.RoleWorkspaceAdmin), StepUp},
		{"admin not owner without otp", principalWith("a1", false, identity.RoleWorkspaceAdmin), Allow},
		{"admin not owner with otp", principalWith("a1", true, identity.RoleWorkspaceAdmin), Allow},
		{"super without otp", principalWith("s1", false, identity.RolePlatformSuper), Allow},
		{"stranger", principalWith("u2", true, identity.RoleUser), Deny},
	}

	for _, action := range []Action{ActionLock, ActionUnlock} {
		for _, tt := range tests {
			t.Run(action.String()+"/"+tt.name, func(t *testing.T) {
				if got := Evaluate(tt.p, action, res); got != tt.want {
					t.Errorf("Evaluate() = %v, want %v", got, tt.want)
				}
			})
		}
	}
}

func TestEvaluateCreatePublicShare(t *testing.T) {
	tests := []struct {
		name string
		p    *identity.Principal
		res  Resource
		want Decision
	}{
		{"owner unlocked", principalWith("owner", false, identity.RoleUser), Resource{Exists: true, OwnerID: "owner"}, Allow},
		{"owner locked", principalWith("owner", false, identity.RoleUser), Resource{Exists: true, OwnerID: "owner", Locked: true}, Locked},
		{"admin not owner", principalWith("a1", true, identity.RoleWorkspaceAdmin), Resource{Exists: true, OwnerID: "owner"}, Deny},
		{"stranger", principalWith("u2", false, identity.RoleUser), Resource{Exists: true, OwnerID: "owner"}, Deny},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Evaluate(tt.p, ActionCreatePublicShare, tt.res); got != tt.want {
				t.Errorf("Evaluate() = %v, want %v", got, tt.want)
			}
		})
	}
}
