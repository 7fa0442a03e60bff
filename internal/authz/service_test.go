package authz

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

func setupAuthzServiceTest(t *testing.T) *Service {
	t.Helper()
	dsn := fmt.Sprintf("file:%s_%d?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_"), time.Now().UnixNano())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite failed: %v", err)
	}
	svc, err := NewService(db)
	if err != nil {
		t.Fatalf("new authz service failed: %v", err)
	}
	return svc
}

func TestEnforceUserWithGrantedRole(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.GrantRolePolicy("auditor", "/admin/logs", "GET"); err != nil {
		t.Fatalf("grant role policy failed: %v", err)
	}
	if err := svc.SetUserRoles(1, []string{"auditor"}); err != nil {
		t.Fatalf("set user roles failed: %v", err)
	}

	allow, err := svc.EnforceUser(1, "member", "/api/v1/admin/logs", "get")
	if err != nil {
		t.Fatalf("enforce allow failed: %v", err)
	}
	if !allow {
		t.Fatalf("expected allow=true")
	}

	allow, err = svc.EnforceUser(1, "member", "/api/v1/admin/logs", "POST")
	if err != nil {
		t.Fatalf("enforce deny failed: %v", err)
	}
	if allow {
		t.Fatalf("expected allow=false")
	}
}

func TestSetUserRolesOverride(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.GrantRolePolicy("auditor", "/admin/logs", "GET"); err != nil {
		t.Fatalf("grant auditor policy failed: %v", err)
	}
	if err := svc.GrantRolePolicy("curator", "/admin/posts/:pid/pin", "PUT"); err != nil {
		t.Fatalf("grant curator policy failed: %v", err)
	}

	if err := svc.SetUserRoles(2, []string{"auditor"}); err != nil {
		t.Fatalf("set first role failed: %v", err)
	}
	roles, err := svc.GetUserRoles(2)
	if err != nil {
		t.Fatalf("get roles failed: %v", err)
	}
	if len(roles) != 1 || roles[0] != "role:auditor" {
		t.Fatalf("roles want [role:auditor], got=%v", roles)
	}

	if err := svc.SetUserRoles(2, []string{"curator"}); err != nil {
		t.Fatalf("set second role failed: %v", err)
	}
	roles, err = svc.GetUserRoles(2)
	if err != nil {
		t.Fatalf("get roles failed: %v", err)
	}
	if len(roles) != 1 || roles[0] != "role:curator" {
		t.Fatalf("roles want [role:curator], got=%v", roles)
	}

	allow, err := svc.EnforceUser(2, "", "/admin/logs", "GET")
	if err != nil {
		t.Fatalf("enforce old role failed: %v", err)
	}
	if allow {
		t.Fatalf("expected old role permission removed")
	}

	allow, err = svc.EnforceUser(2, "", "/admin/posts/p1/pin", "PUT")
	if err != nil {
		t.Fatalf("enforce new role failed: %v", err)
	}
	if !allow {
		t.Fatalf("expected new role permission granted")
	}
}

func TestNormalizeObject(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{in: "/api/v1/admin/posts/:pid/hide", want: "/admin/posts/:pid/hide"},
		{in: "/admin/posts/:pid/hide", want: "/admin/posts/:pid/hide"},
		{in: "admin/logs", want: "/admin/logs"},
		{in: "/api/v1", want: "/"},
		{in: "", want: "/"},
	}
	for _, item := range cases {
		got := NormalizeObject(item.in)
		if got != item.want {
			t.Fatalf("normalize object failed, in=%q want=%q got=%q", item.in, item.want, got)
		}
	}
}

func TestBootstrapBuiltinRoles(t *testing.T) {
	svc := setupAuthzServiceTest(t)
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap builtin roles failed: %v", err)
	}
	// 重复执行不报错
	if err := svc.BootstrapBuiltinRoles(); err != nil {
		t.Fatalf("bootstrap builtin roles again failed: %v", err)
	}

	roles, err := svc.ListRoles()
	if err != nil {
		t.Fatalf("list roles failed: %v", err)
	}
	wantRoles := map[string]bool{
		"role:member":    true,
		"role:moderator": true,
		"role:admin":     true,
	}
	for _, role := range roles {
		delete(wantRoles, role)
	}
	if len(wantRoles) != 0 {
		t.Fatalf("builtin roles missing: %v", wantRoles)
	}

	cases := []struct {
		role   string
		obj    string
		act    string
		expect bool
	}{
		{role: "member", obj: "/api/v1/admin/posts/p1/hide", act: "PUT", expect: false},
		{role: "moderator", obj: "/api/v1/admin/posts/p1/hide", act: "PUT", expect: true},
		{role: "moderator", obj: "/api/v1/admin/users/u1/ban", act: "PUT", expect: true},
		{role: "moderator", obj: "/api/v1/admin/users/u1/points", act: "POST", expect: false},
		{role: "moderator", obj: "/api/v1/admin/settings/points", act: "PUT", expect: false},
		{role: "admin", obj: "/api/v1/admin/users/u1/points", act: "POST", expect: true},
		{role: "admin", obj: "/api/v1/admin/settings/points", act: "PUT", expect: true},
	}
	for _, tc := range cases {
		allow, err := svc.EnforceUser(10, tc.role, tc.obj, tc.act)
		if err != nil {
			t.Fatalf("enforce %s %s %s failed: %v", tc.role, tc.act, tc.obj, err)
		}
		if allow != tc.expect {
			t.Fatalf("enforce %s %s %s want %v got %v", tc.role, tc.act, tc.obj, tc.expect, allow)
		}
	}

	policies, err := svc.GetUserPolicies(10, "admin")
	if err != nil {
		t.Fatalf("get user policies failed: %v", err)
	}
	if len(policies) < 5 {
		t.Fatalf("admin should see inherited moderator policies, got=%v", policies)
	}
}
