package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"pawline/cmd/internal/auth"
	"pawline/cmd/internal/chat"
	"pawline/cmd/internal/directory"
)

func newTestHandler(t *testing.T) (*Handler, *chat.Service) {
	t.Helper()

	store := chat.NewInMemoryStore()
	dir := directory.NewInMemoryDirectory()
	dir.PutMember(directory.Member{ID: 1, Nickname: "rosa"})
	dir.PutMember(directory.Member{ID: 2, Nickname: "theo"})
	dir.PutListing(directory.Listing{ID: 100, OwnerID: 1, Title: "Lost beagle"})

	svc, err := chat.NewService(nil, store, dir, dir, nil, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	h, err := NewHandler(nil, svc, auth.DevVerifier{}, nil, "pawline_access")
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	return h, svc
}

func doRequest(t *testing.T, h *Handler, method, target, token string) *httptest.ResponseRecorder {
	t.Helper()

	mux := http.NewServeMux()
	h.Register(mux)

	req := httptest.NewRequest(method, target, nil)
	if token != "" {
		req.AddCookie(&http.Cookie{Name: "pawline_access", Value: token})
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestHandler_RequiresAuth(t *testing.T) {
	t.Parallel()

	h, _ := newTestHandler(t)

	for _, target := range []string{
		"/chat/threads",
		"/chat/threads/unread",
		"/chat/threads/1/messages",
	} {
		rec := doRequest(t, h, http.MethodGet, target, "")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s without cookie: status %d", target, rec.Code)
		}

		rec = doRequest(t, h, http.MethodGet, target, "not-a-token")
		if rec.Code != http.StatusUnauthorized {
			t.Fatalf("%s with bad cookie: status %d", target, rec.Code)
		}
	}
}

func TestHandler_ListThreadsAndMessages(t *testing.T) {
	t.Parallel()

	h, svc := newTestHandler(t)

	d, err := svc.Send(t.Context(), chat.SendInput{
		SenderID: 2, ListingID: 100, Content: "found a beagle on 5th",
		Now: time.Date(2026, 3, 14, 9, 30, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("seed send: %v", err)
	}

	// Owner lists threads.
	rec := doRequest(t, h, http.MethodGet, "/chat/threads", "dev:1")
	if rec.Code != http.StatusOK {
		t.Fatalf("list threads: status %d body %s", rec.Code, rec.Body.String())
	}

	var threads threadPageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &threads); err != nil {
		t.Fatalf("decode threads: %v", err)
	}
	if len(threads.Items) != 1 || threads.Items[0].UnreadCount != 1 {
		t.Fatalf("threads = %+v", threads.Items)
	}

	// Unread filter includes it for the owner.
	rec = doRequest(t, h, http.MethodGet, "/chat/threads/unread", "dev:1")
	if rec.Code != http.StatusOK {
		t.Fatalf("unread threads: status %d", rec.Code)
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &threads); err != nil {
		t.Fatalf("decode unread: %v", err)
	}
	if len(threads.Items) != 1 {
		t.Fatalf("unread threads = %d", len(threads.Items))
	}

	// Opening history marks the page read.
	rec = doRequest(t, h, http.MethodGet,
		"/chat/threads/"+itoa(d.ThreadID)+"/messages?sort=oldest&size=10", "dev:1")
	if rec.Code != http.StatusOK {
		t.Fatalf("messages: status %d body %s", rec.Code, rec.Body.String())
	}

	var msgs messagePageResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &msgs); err != nil {
		t.Fatalf("decode messages: %v", err)
	}
	if len(msgs.Items) != 1 || !msgs.Items[0].Read {
		t.Fatalf("messages = %+v", msgs.Items)
	}

	// And the unread filter now excludes the thread.
	rec = doRequest(t, h, http.MethodGet, "/chat/threads/unread", "dev:1")
	if err := json.Unmarshal(rec.Body.Bytes(), &threads); err != nil {
		t.Fatalf("decode unread after read: %v", err)
	}
	if len(threads.Items) != 0 {
		t.Fatalf("unread after read = %d", len(threads.Items))
	}
}

func TestHandler_ErrorMapping(t *testing.T) {
	t.Parallel()

	h, svc := newTestHandler(t)

	d, err := svc.Send(t.Context(), chat.SendInput{SenderID: 2, ListingID: 100, Content: "x"})
	if err != nil {
		t.Fatalf("seed send: %v", err)
	}

	cases := []struct {
		target   string
		token    string
		wantCode int
		wantErr  string
	}{
		{"/chat/threads/99999/messages", "dev:1", http.StatusNotFound, "thread_not_found"},
		{"/chat/threads/" + itoa(d.ThreadID) + "/messages", "dev:3", http.StatusForbidden, "forbidden"},
		{"/chat/threads/zero/messages", "dev:1", http.StatusBadRequest, "bad_request"},
		{"/chat/threads?cursor=-4", "dev:1", http.StatusBadRequest, "bad_request"},
		{"/chat/threads?sort=sideways", "dev:1", http.StatusBadRequest, "bad_request"},
		{"/chat/images/download-address?key=chat/1/a.jpg", "dev:1", http.StatusServiceUnavailable, "images_unavailable"},
	}

	for _, tc := range cases {
		rec := doRequest(t, h, http.MethodGet, tc.target, tc.token)
		if rec.Code != tc.wantCode {
			t.Fatalf("%s: status %d, want %d (body %s)", tc.target, rec.Code, tc.wantCode, rec.Body.String())
		}

		var body errorBody
		if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
			t.Fatalf("%s: decode error body: %v", tc.target, err)
		}
		if body.Error.Code != tc.wantErr {
			t.Fatalf("%s: code %q, want %q", tc.target, body.Error.Code, tc.wantErr)
		}
	}
}

func TestHandler_DownloadAddressThreadMismatch(t *testing.T) {
	t.Parallel()

	h, svc := newTestHandler(t)

	d, err := svc.Send(t.Context(), chat.SendInput{SenderID: 2, ListingID: 100, Content: "x"})
	if err != nil {
		t.Fatalf("seed send: %v", err)
	}
	key := "chat/" + itoa(d.ThreadID) + "/photo.jpg"

	// thread_id naming a different thread than the key is rejected outright.
	rec := doRequest(t, h, http.MethodGet,
		"/chat/images/download-address?key="+key+"&thread_id="+itoa(d.ThreadID+1), "dev:2")
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("mismatched thread_id: status %d body %s", rec.Code, rec.Body.String())
	}

	var body errorBody
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decode error body: %v", err)
	}
	if body.Error.Code != "bad_request" {
		t.Fatalf("code = %q", body.Error.Code)
	}

	// A matching thread_id clears validation and membership; only the
	// unconfigured issuer stops the request.
	rec = doRequest(t, h, http.MethodGet,
		"/chat/images/download-address?key="+key+"&thread_id="+itoa(d.ThreadID), "dev:2")
	if rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("matching thread_id: status %d body %s", rec.Code, rec.Body.String())
	}

	// Outsiders stay forbidden regardless of the parameter.
	rec = doRequest(t, h, http.MethodGet,
		"/chat/images/download-address?key="+key+"&thread_id="+itoa(d.ThreadID), "dev:3")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("outsider: status %d body %s", rec.Code, rec.Body.String())
	}
}

func itoa(v int64) string {
	return strconv.FormatInt(v, 10)
}
