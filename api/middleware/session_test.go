package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/angelmondragon/sharecart-backend/pkg/config"
)

func TestSessionMintsCookieWhenMissing(t *testing.T) {
	var seen, ip string
	handler := Session(config.SessionConfig{CookieName: "sharecart_session", TTL: time.Hour}, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = SessionIDFromContext(r.Context())
			ip = ClientIPFromContext(r.Context())
		}),
	)

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "203.0.113.9:4000"
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if len(seen) != 36 {
		t.Fatalf("expected minted session id, got %q", seen)
	}
	if ip != "203.0.113.9" {
		t.Fatalf("unexpected client ip %q", ip)
	}
	cookies := resp.Result().Cookies()
	if len(cookies) != 1 || cookies[0].Value != seen {
		t.Fatalf("expected session cookie, got %+v", cookies)
	}
	if resp.Header().Get(sessionHeader) != seen {
		t.Fatalf("expected session header echo")
	}
}

func TestSessionReusesHeaderAndCookie(t *testing.T) {
	const id = "0b8f6a3e-6c1d-4e55-9d42-3f4b5a6c7d8e"
	var seen string
	handler := Session(config.SessionConfig{CookieName: "sharecart_session"}, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = SessionIDFromContext(r.Context())
		}),
	)

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set(sessionHeader, id)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if seen != id {
		t.Fatalf("expected header session, got %q", seen)
	}
	if len(resp.Result().Cookies()) != 0 {
		t.Fatalf("did not expect a new cookie")
	}

	req = httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "sharecart_session", Value: id})
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if seen != id {
		t.Fatalf("expected cookie session, got %q", seen)
	}
}

func TestSessionReplacesMalformedID(t *testing.T) {
	var seen string
	handler := Session(config.SessionConfig{}, nil)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen = SessionIDFromContext(r.Context())
		}),
	)
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(sessionHeader, "../../etc")
	handler.ServeHTTP(httptest.NewRecorder(), req)
	if seen == "../../etc" || len(seen) != 36 {
		t.Fatalf("expected fresh session id, got %q", seen)
	}
}
