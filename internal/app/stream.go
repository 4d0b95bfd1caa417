package app

import (
	"encoding/json"
	"net/http"
	"strings"

	"corkboard/api/internal/board"
	"corkboard/api/internal/events"
)

type streamFrame struct {
	Type string `json:"type"`
}

// handleBoardStream serves GET /api/boards/{uid}/events as newline-delimited
// JSON. One frame per invalidation, skipping the streaming user's own
// publishes. The stream carries no payload: a refresh frame only tells the
// client to re-fetch the board.
//
// The token may arrive via the Authorization header or the token query
// parameter, because EventSource-style clients cannot set headers.
func (s *HTTPServer) handleBoardStream(w http.ResponseWriter, r *http.Request, boardUID string) {
	token := bearerToken(r)
	if token == "" {
		token = strings.TrimSpace(r.URL.Query().Get("token"))
	}
	if token == "" {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return
	}
	session, err := s.service.SessionFromToken(r.Context(), token)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Unauthorized", nil)
		return
	}

	if err := s.service.streamPrivilege(r.Context(), boardUID, session.Email, board.PrivilegeRead); err != nil {
		status, code, message, details := mapError(err)
		writeError(w, status, code, message, details)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "SERVER_ERROR", "Streaming unsupported", nil)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)

	writeFrame := func(frame streamFrame) {
		payload, err := json.Marshal(frame)
		if err != nil {
			return
		}
		_, _ = w.Write(append(payload, '\n'))
		flusher.Flush()
	}

	writeFrame(streamFrame{Type: "connected"})

	// Publishes happen inline on the mutating goroutine, so frames are
	// funneled through a channel to this request's goroutine. A slow reader
	// only needs the latest signal; drops are fine because every frame
	// means the same thing.
	refresh := make(chan struct{}, 1)
	unsubscribe := s.service.Hub().Subscribe(boardUID, func(ev events.Event) {
		if ev.ActorID == session.UserID {
			return
		}
		select {
		case refresh <- struct{}{}:
		default:
		}
	})
	defer unsubscribe()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-refresh:
			// Membership is re-checked before every frame so that removal
			// revokes an already-open stream, the same way the calendar feed
			// re-checks on every fetch.
			if err := s.service.streamPrivilege(r.Context(), boardUID, session.Email, board.PrivilegeRead); err != nil {
				return
			}
			writeFrame(streamFrame{Type: "refresh"})
		}
	}
}
