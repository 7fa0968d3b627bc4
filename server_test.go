package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"golang.org/x/oauth2"
)

func testServer(t *testing.T, store TokenStore, tokenURL string) *Server {
	t.Helper()
	tokens := NewTokenManager(oauthTestConfig(tokenURL), store)
	untis := &mockUntis{}
	cal := &mockCalendar{}
	syncer := testSyncer(t, untis, cal)
	server := NewServer(syncer.config, tokens, syncer)
	t.Cleanup(server.Stop)
	return server
}

func get(t *testing.T, handler http.Handler, target string) (int, string) {
	t.Helper()
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, target, nil))
	body, err := io.ReadAll(recorder.Result().Body)
	if err != nil {
		t.Fatalf("Failed to read response body: %v", err)
	}
	return recorder.Code, string(body)
}

func TestHandleRoot_NoCode(t *testing.T) {
	server := testServer(t, &memTokenStore{}, "https://example.com/token")

	status, body := get(t, server.Handler(), "/")

	if status != http.StatusOK {
		t.Errorf("Expected 200, got %d", status)
	}
	if body != "It's already set up!" {
		t.Errorf("Expected setup acknowledgment, got %q", body)
	}
}

func TestHandleRoot_AlreadyAuthorized(t *testing.T) {
	store := &memTokenStore{token: &oauth2.Token{AccessToken: "a", RefreshToken: "r"}}
	server := testServer(t, store, "https://example.com/token")

	_, body := get(t, server.Handler(), "/?code=some-code")

	if body != "It's already set up!" {
		t.Errorf("Expected the code to be ignored when authorized, got %q", body)
	}
	if store.saves != 0 {
		t.Error("Expected no credential write when already authorized")
	}
}

func TestHandleRoot_CompletesAuthorization(t *testing.T) {
	endpoint := tokenEndpoint(t, "access-1", "refresh-1")
	defer endpoint.Close()

	store := &memTokenStore{}
	server := testServer(t, store, endpoint.URL)

	status, body := get(t, server.Handler(), "/?code=one-time-code")

	if status != http.StatusOK {
		t.Errorf("Expected 200, got %d", status)
	}
	if body != "Everything is set up!" {
		t.Errorf("Expected completion acknowledgment, got %q", body)
	}
	if saved := store.saved(); saved == nil || saved.RefreshToken != "refresh-1" {
		t.Error("Expected the exchanged credential to be persisted")
	}

	// A second visit must report that setup is done.
	_, body = get(t, server.Handler(), "/?code=another-code")
	if body != "It's already set up!" {
		t.Errorf("Expected the second visit to be a no-op, got %q", body)
	}
}

func TestHandleRoot_ExchangeFailure(t *testing.T) {
	endpoint := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"error":"invalid_grant"}`, http.StatusBadRequest)
	}))
	defer endpoint.Close()

	store := &memTokenStore{}
	server := testServer(t, store, endpoint.URL)

	status, _ := get(t, server.Handler(), "/?code=bad-code")

	if status != http.StatusInternalServerError {
		t.Errorf("Expected 500 on a failed exchange, got %d", status)
	}
	if store.saves != 0 {
		t.Error("Expected no credential to be persisted after a failed exchange")
	}
}

func TestHandlePreview(t *testing.T) {
	tokens := NewTokenManager(oauthTestConfig("https://example.com/token"), &memTokenStore{})
	untis := &mockUntis{lessons: map[int][]Lesson{testAnchor: {mathLesson()}}}
	cal := &mockCalendar{}
	syncer := testSyncer(t, untis, cal)
	server := NewServer(syncer.config, tokens, syncer)
	t.Cleanup(server.Stop)

	recorder := httptest.NewRecorder()
	server.Handler().ServeHTTP(recorder, httptest.NewRequest(http.MethodGet, "/preview.ics", nil))

	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", recorder.Code)
	}
	if ct := recorder.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Errorf("Expected a text/calendar response, got %q", ct)
	}
	if !strings.Contains(recorder.Body.String(), "SUMMARY:Math") {
		t.Error("Expected the mapped lesson in the preview feed")
	}
	if cal.createCalls != 0 {
		t.Error("Expected the preview to never write to the calendar")
	}
}

func TestStartSchedule_InvalidCron(t *testing.T) {
	tokens := NewTokenManager(oauthTestConfig("https://example.com/token"), &memTokenStore{})
	syncer := testSyncer(t, &mockUntis{}, &mockCalendar{})
	syncer.config.Schedule = "not a cron expression"
	server := NewServer(syncer.config, tokens, syncer)
	t.Cleanup(server.Stop)

	if err := server.StartSchedule(); err == nil {
		t.Error("Expected an error for an invalid schedule")
	}
}

func TestStartSchedule_StopWaitsForFirstRun(t *testing.T) {
	tokens := NewTokenManager(oauthTestConfig("https://example.com/token"), &memTokenStore{})
	untis := &mockUntis{}
	syncer := testSyncer(t, untis, &mockCalendar{})
	server := NewServer(syncer.config, tokens, syncer)

	if err := server.StartSchedule(); err != nil {
		t.Fatalf("StartSchedule() returned an error: %v", err)
	}
	server.Stop()

	// Stop returns only after the immediate first run finished, so its side
	// effects are visible without further synchronization.
	if untis.loginCalls != 1 {
		t.Errorf("Expected exactly one immediate run, got %d logins", untis.loginCalls)
	}

	// A second Stop is a no-op.
	server.Stop()
}
