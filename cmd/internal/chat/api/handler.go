// Package api exposes the synchronous chat endpoints: thread listing,
// message history with its mark-read side effect, and presigned image
// addresses. All endpoints authenticate via the access-token cookie.
package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"pawline/cmd/internal/auth"
	"pawline/cmd/internal/chat"
	"pawline/cmd/internal/images"
)

// Handler serves the chat HTTP API.
type Handler struct {
	log      *slog.Logger
	svc      *chat.Service
	verifier auth.Verifier
	issuer   *images.Issuer

	cookieName string
}

// NewHandler constructs the API handler. issuer may be nil; the image
// endpoints then respond 503.
func NewHandler(log *slog.Logger, svc *chat.Service, verifier auth.Verifier, issuer *images.Issuer, cookieName string) (*Handler, error) {
	if log == nil {
		log = slog.Default()
	}
	if svc == nil {
		return nil, errors.New("api: nil service")
	}
	if verifier == nil {
		return nil, errors.New("api: nil verifier")
	}
	if strings.TrimSpace(cookieName) == "" {
		cookieName = auth.DefaultCookieName
	}
	return &Handler{
		log:        log,
		svc:        svc,
		verifier:   verifier,
		issuer:     issuer,
		cookieName: cookieName,
	}, nil
}

// Register mounts the chat routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /chat/threads", h.handleListThreads)
	mux.HandleFunc("GET /chat/threads/unread", h.handleListUnreadThreads)
	mux.HandleFunc("GET /chat/threads/{id}/messages", h.handleListMessages)
	mux.HandleFunc("POST /chat/threads/{id}/read", h.handleMarkRead)
	mux.HandleFunc("POST /chat/images/upload-address", h.handleUploadAddress)
	mux.HandleFunc("GET /chat/images/download-address", h.handleDownloadAddress)
}

func (h *Handler) authenticate(w http.ResponseWriter, r *http.Request) (auth.Claims, bool) {
	token, err := auth.TokenFromCookie(r, h.cookieName)
	if err != nil {
		writeError(w, h.log, http.StatusUnauthorized, "unauthenticated", "missing credentials")
		return auth.Claims{}, false
	}
	claims, err := h.verifier.Verify(token, time.Now().UTC())
	if err != nil {
		writeError(w, h.log, http.StatusUnauthorized, "unauthenticated", "invalid credentials")
		return auth.Claims{}, false
	}
	return claims, true
}

// ---- thread listing ----

type threadPageResponse struct {
	Items      []threadView `json:"items"`
	HasNext    bool         `json:"has_next"`
	NextCursor *int64       `json:"next_cursor,omitempty"`
}

type threadView struct {
	ThreadID            int64      `json:"thread_id"`
	ListingID           int64      `json:"listing_id"`
	ListingTitle        string     `json:"listing_title,omitempty"`
	CounterpartID       int64      `json:"counterpart_id"`
	CounterpartNickname string     `json:"counterpart_nickname,omitempty"`
	LastKind            string     `json:"last_kind,omitempty"`
	LastPreview         string     `json:"last_preview,omitempty"`
	LastMessageAt       *time.Time `json:"last_message_at,omitempty"`
	UnreadCount         int        `json:"unread_count"`
}

func (h *Handler) handleListThreads(w http.ResponseWriter, r *http.Request) {
	h.listThreads(w, r, false)
}

func (h *Handler) handleListUnreadThreads(w http.ResponseWriter, r *http.Request) {
	h.listThreads(w, r, true)
}

func (h *Handler) listThreads(w http.ResponseWriter, r *http.Request, unreadOnly bool) {
	claims, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	req, err := pageRequestFromQuery(r)
	if err != nil {
		writeError(w, h.log, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	page, err := h.svc.ListThreads(r.Context(), claims.UserID, req, unreadOnly)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	items := make([]threadView, 0, len(page.Items))
	for _, s := range page.Items {
		items = append(items, threadView{
			ThreadID:            s.ThreadID,
			ListingID:           s.ListingID,
			ListingTitle:        s.ListingTitle,
			CounterpartID:       s.CounterpartID,
			CounterpartNickname: s.CounterpartNickname,
			LastKind:            string(s.LastKind),
			LastPreview:         s.LastPreview,
			LastMessageAt:       s.LastMessageAt,
			UnreadCount:         s.UnreadCount,
		})
	}

	writeJSON(w, h.log, http.StatusOK, threadPageResponse{
		Items:      items,
		HasNext:    page.HasNext,
		NextCursor: page.NextCursor,
	})
}

// ---- message history ----

type messagePageResponse struct {
	Items      []messageView `json:"items"`
	HasNext    bool          `json:"has_next"`
	NextCursor *int64        `json:"next_cursor,omitempty"`
}

type messageView struct {
	ID        int64     `json:"id"`
	ThreadID  int64     `json:"thread_id"`
	SenderID  int64     `json:"sender_id"`
	Kind      string    `json:"kind"`
	Content   string    `json:"content,omitempty"`
	ImageKey  string    `json:"image_key,omitempty"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// handleListMessages returns one history page. Opening history marks the
// caller's unread messages in the thread as read before the page is built.
func (h *Handler) handleListMessages(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	threadID, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.log, http.StatusBadRequest, "bad_request", "invalid thread id")
		return
	}
	req, err := pageRequestFromQuery(r)
	if err != nil {
		writeError(w, h.log, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	page, err := h.svc.ListMessages(r.Context(), claims.UserID, threadID, req)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}

	items := make([]messageView, 0, len(page.Items))
	for _, m := range page.Items {
		items = append(items, messageView{
			ID:        m.ID,
			ThreadID:  m.ThreadID,
			SenderID:  m.SenderID,
			Kind:      string(m.Kind),
			Content:   m.Content,
			ImageKey:  m.ImageKey,
			Read:      m.Read,
			CreatedAt: m.CreatedAt,
		})
	}

	writeJSON(w, h.log, http.StatusOK, messagePageResponse{
		Items:      items,
		HasNext:    page.HasNext,
		NextCursor: page.NextCursor,
	})
}

type markReadResponse struct {
	Marked int `json:"marked"`
}

func (h *Handler) handleMarkRead(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	threadID, err := pathID(r, "id")
	if err != nil {
		writeError(w, h.log, http.StatusBadRequest, "bad_request", "invalid thread id")
		return
	}

	n, err := h.svc.MarkRead(r.Context(), claims.UserID, threadID)
	if err != nil {
		h.writeServiceError(w, err)
		return
	}
	writeJSON(w, h.log, http.StatusOK, markReadResponse{Marked: n})
}

// ---- image addresses ----

// uploadAddressRequest asks for a presigned PUT target. ThreadID may be zero
// when the image is the first contact; the thread then resolves from
// (listing, caller, receiver) exactly like a text send would.
type uploadAddressRequest struct {
	FileName   string `json:"file_name"`
	FileType   string `json:"file_type"`
	ThreadID   int64  `json:"thread_id"`
	ListingID  int64  `json:"listing_id"`
	ReceiverID int64  `json:"receiver_id"`
}

func (h *Handler) handleUploadAddress(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.authenticate(w, r)
	if !ok {
		return
	}
	if h.issuer == nil {
		writeError(w, h.log, http.StatusServiceUnavailable, "images_unavailable", "image storage is not configured")
		return
	}

	var req uploadAddressRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, h.log, http.StatusBadRequest, "bad_request", "invalid body")
		return
	}

	var threadID int64
	switch {
	case req.ThreadID > 0:
		if _, err := h.svc.AuthorizeThreadMember(r.Context(), claims.UserID, req.ThreadID); err != nil {
			h.writeServiceError(w, err)
			return
		}
		threadID = req.ThreadID
	case req.ListingID > 0:
		thread, err := h.svc.ResolveThread(r.Context(), claims.UserID, req.ListingID, req.ReceiverID)
		if err != nil {
			h.writeServiceError(w, err)
			return
		}
		threadID = thread.ID
	default:
		writeError(w, h.log, http.StatusBadRequest, "bad_request", "missing thread_id or listing_id")
		return
	}

	id, err := chat.NewEnvelopeID(time.Now().UTC())
	if err != nil || id == "" {
		id = chat.NewRandomHex(10)
	}

	addr, err := h.issuer.NewUploadAddress(r.Context(), threadID, id, req.FileType)
	if err != nil {
		if errors.Is(err, images.ErrUnsupportedType) {
			writeError(w, h.log, http.StatusBadRequest, "unsupported_content_type", "content type not allowed")
			return
		}
		h.log.Error("api.upload_address.fail", "thread_id", threadID, "err", err)
		writeError(w, h.log, http.StatusInternalServerError, "internal_error", "could not issue upload address")
		return
	}

	writeJSON(w, h.log, http.StatusOK, addr)
}

// handleDownloadAddress authorizes against the thread encoded in the object
// key. An optional thread_id query parameter is cross-checked against it so a
// client cannot pair one thread's credentials with another thread's key.
func (h *Handler) handleDownloadAddress(w http.ResponseWriter, r *http.Request) {
	claims, ok := h.authenticate(w, r)
	if !ok {
		return
	}

	key := strings.TrimSpace(r.URL.Query().Get("key"))
	threadID, err := images.ThreadIDFromKey(key)
	if err != nil {
		writeError(w, h.log, http.StatusBadRequest, "bad_request", "invalid key")
		return
	}
	if raw := strings.TrimSpace(r.URL.Query().Get("thread_id")); raw != "" {
		want, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || want <= 0 || want != threadID {
			writeError(w, h.log, http.StatusBadRequest, "bad_request", "thread_id does not match key")
			return
		}
	}

	if _, err := h.svc.AuthorizeThreadMember(r.Context(), claims.UserID, threadID); err != nil {
		h.writeServiceError(w, err)
		return
	}

	if h.issuer == nil {
		writeError(w, h.log, http.StatusServiceUnavailable, "images_unavailable", "image storage is not configured")
		return
	}

	addr, err := h.issuer.NewDownloadAddress(r.Context(), key)
	if err != nil {
		h.log.Error("api.download_address.fail", "key", key, "err", err)
		writeError(w, h.log, http.StatusInternalServerError, "internal_error", "could not issue download address")
		return
	}

	writeJSON(w, h.log, http.StatusOK, addr)
}

// ---- shared helpers ----

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chat.ErrThreadNotFound):
		writeError(w, h.log, http.StatusNotFound, "thread_not_found", "thread not found")
	case errors.Is(err, chat.ErrMessageNotFound):
		writeError(w, h.log, http.StatusNotFound, "message_not_found", "message not found")
	case errors.Is(err, chat.ErrForbidden):
		writeError(w, h.log, http.StatusForbidden, "forbidden", "not a participant")
	case errors.Is(err, chat.ErrSelfThread):
		writeError(w, h.log, http.StatusBadRequest, "self_thread", "cannot message yourself")
	case errors.Is(err, chat.ErrListingNotFound):
		writeError(w, h.log, http.StatusNotFound, "listing_not_found", "listing not found")
	case errors.Is(err, chat.ErrSenderNotFound):
		writeError(w, h.log, http.StatusNotFound, "sender_not_found", "sender not found")
	default:
		h.log.Error("api.internal", "err", err)
		writeError(w, h.log, http.StatusInternalServerError, "internal_error", "internal error")
	}
}

func pathID(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(r.PathValue(name))
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

func pageRequestFromQuery(r *http.Request) (chat.PageRequest, error) {
	q := r.URL.Query()

	var req chat.PageRequest

	if raw := strings.TrimSpace(q.Get("cursor")); raw != "" {
		c, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || c <= 0 {
			return chat.PageRequest{}, errors.New("invalid cursor")
		}
		req.Cursor = &c
	}
	if raw := strings.TrimSpace(q.Get("size")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			return chat.PageRequest{}, errors.New("invalid size")
		}
		req.Size = n
	}
	dir, err := chat.ParseSortDirection(q.Get("sort"))
	if err != nil {
		return chat.PageRequest{}, err
	}
	req.Direction = dir

	return req, nil
}
