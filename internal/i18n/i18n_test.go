package i18n

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestResolveLocale(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cases := map[string]string{
		"":                     DefaultLocale,
		"en-GB,en;q=0.9":       LocaleEN,
		"zh-TW,zh;q=0.8":       LocaleTW,
		"zh-Hant-HK":           LocaleTW,
		"zh":                   LocaleZH,
		"fr-FR,fr;q=0.9":       DefaultLocale,
		"*;q=0.5, en-US;q=0.4": LocaleEN,
	}
	for header, want := range cases {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest("GET", "/", nil)
		if header != "" {
			c.Request.Header.Set("Accept-Language", header)
		}
		if got := ResolveLocale(c); got != want {
			t.Fatalf("header %q: want %s got %s", header, want, got)
		}
	}
}

func TestResolveLocaleQueryOverridesHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/?lang=en", nil)
	c.Request.Header.Set("Accept-Language", "zh-CN")
	if got := ResolveLocale(c); got != LocaleEN {
		t.Fatalf("want %s got %s", LocaleEN, got)
	}
}

func TestTFallsBackToDefaultLocale(t *testing.T) {
	if got := T(LocaleTW, "error.invalid_cursor"); got != catalog[DefaultLocale]["error.invalid_cursor"] {
		t.Fatalf("unexpected fallback: %s", got)
	}
	if got := T(LocaleEN, "missing.key"); got != "missing.key" {
		t.Fatalf("missing key should echo, got %s", got)
	}
}

func TestSprintf(t *testing.T) {
	got := Sprintf(LocaleEN, "message.comment_reply", "hello", 3)
	if got != "New reply on your post \"hello\" (#3)" {
		t.Fatalf("unexpected message: %s", got)
	}
}
