package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"courtportal/internal/domain"
	"courtportal/internal/messaging"
	"courtportal/internal/metrics"
	"courtportal/internal/service"
)

// selectorFromQuery parses the channel selector from query parameters:
// exactly one of direct_with, group_id, or broadcast=true.
func selectorFromQuery(r *http.Request) (messaging.ChannelSelector, bool) {
	q := r.URL.Query()
	var sel messaging.ChannelSelector
	if v := q.Get("direct_with"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return sel, false
		}
		sel.DirectWith = id
		return sel, true
	}
	if v := q.Get("group_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil || id <= 0 {
			return sel, false
		}
		sel.GroupID = id
		return sel, true
	}
	if q.Get("broadcast") == "true" {
		sel.Broadcast = true
		return sel, true
	}
	return sel, false
}

func handleListChannels(channelSvc *service.ChannelService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		user := CurrentUser(r)
		channels, err := channelSvc.ListChannels(r.Context(), user)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, channels)
	}
}

type createGroupRequest struct {
	Name      string  `json:"name"`
	MemberIDs []int64 `json:"member_ids"`
}

func handleCreateGroup(channelSvc *service.ChannelService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createGroupRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		g, err := channelSvc.CreateGroup(r.Context(), CurrentUser(r), req.Name, req.MemberIDs)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, g)
	}
}

func handleHistory(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sel, ok := selectorFromQuery(r)
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "one of direct_with, group_id or broadcast=true is required"})
			return
		}
		msgs, err := msgSvc.History(r.Context(), CurrentUser(r), sel)
		if err != nil {
			writeError(w, err)
			return
		}
		if msgs == nil {
			msgs = []*domain.Message{}
		}
		writeJSON(w, http.StatusOK, msgs)
	}
}

type createMessageRequest struct {
	messaging.ChannelSelector
	Text          string `json:"text"`
	AttachmentURL string `json:"attachment_url"`
}

func handleCreateMessage(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req createMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		msg, err := msgSvc.Create(r.Context(), CurrentUser(r), service.MessageCreateInput{
			Selector:      req.ChannelSelector,
			Text:          req.Text,
			AttachmentURL: req.AttachmentURL,
		})
		if err != nil {
			writeError(w, err)
			return
		}
		metrics.MessagesStored.Inc()
		writeJSON(w, http.StatusCreated, msg)
	}
}

type editMessageRequest struct {
	Text string `json:"text"`
}

func handleEditMessage(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req editMessageRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		msg, err := msgSvc.Edit(r.Context(), CurrentUser(r), chi.URLParam(r, "messageID"), req.Text)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, msg)
	}
}

func handleDeleteMessage(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		msg, err := msgSvc.Delete(r.Context(), CurrentUser(r), chi.URLParam(r, "messageID"))
		if err != nil {
			writeError(w, err)
			return
		}
		// The tombstone is returned so clients can merge it locally.
		writeJSON(w, http.StatusOK, msg)
	}
}

func handleMarkRead(msgSvc *service.MessageService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var sel messaging.ChannelSelector
		if err := json.NewDecoder(r.Body).Decode(&sel); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		if err := msgSvc.MarkRead(r.Context(), CurrentUser(r), sel); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
