package router

import (
	"testing"

	"github.com/gin-gonic/gin"
)

func TestDeriveAdminPermissionModule(t *testing.T) {
	cases := map[string]string{
		"":                                   "system",
		"/admin/posts/:pid/hide":             "posts",
		"/admin/users/:uid/ban":              "users",
		"/admin/users/:uid/points":           "points",
		"/admin/users/:uid/points/reconcile": "points",
		"/admin/settings/points":             "points",
		"/admin/authz/roles":                 "authz",
		"/posts":                             "posts",
	}
	for object, want := range cases {
		if got := deriveAdminPermissionModule(object); got != want {
			t.Fatalf("module for %q: want %q got %q", object, want, got)
		}
	}
}

func TestBuildAdminPermissionCatalog(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	noop := func(c *gin.Context) {}
	r.GET("/api/v1/posts", noop)
	r.PUT("/api/v1/admin/posts/:pid/hide", noop)
	r.GET("/api/v1/admin/logs", noop)
	r.POST("/api/v1/admin/users/:uid/points", noop)

	items := buildAdminPermissionCatalog(r)
	if len(items) != 3 {
		t.Fatalf("expected 3 admin permissions, got %d: %+v", len(items), items)
	}
	// 按模块排序
	if items[0].Module != "logs" || items[0].Permission != "GET:/admin/logs" {
		t.Fatalf("unexpected first item: %+v", items[0])
	}
	if items[2].Module != "posts" || items[2].Object != "/admin/posts/:pid/hide" {
		t.Fatalf("unexpected last item: %+v", items[2])
	}
	if len(buildAdminPermissionCatalog(nil)) != 0 {
		t.Fatalf("nil engine should yield empty catalog")
	}
}
