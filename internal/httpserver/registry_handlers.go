package httpserver

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"courtportal/internal/domain"
	"courtportal/internal/service"
)

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	return id, err == nil && id > 0
}

func handleRegisterGuest(svc *service.RegistryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var g domain.GuestEntry
		if err := json.NewDecoder(r.Body).Decode(&g); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		if err := svc.RegisterGuest(r.Context(), CurrentUser(r), &g); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, g)
	}
}

func handleListGuests(svc *service.RegistryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		guests, err := svc.ListGuests(r.Context(), CurrentUser(r))
		if err != nil {
			writeError(w, err)
			return
		}
		if guests == nil {
			guests = []*domain.GuestEntry{}
		}
		writeJSON(w, http.StatusOK, guests)
	}
}

func handleUpdateGuest(svc *service.RegistryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "guestID")
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid guest id"})
			return
		}
		var g domain.GuestEntry
		if err := json.NewDecoder(r.Body).Decode(&g); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		g.ID = id
		if err := svc.UpdateGuest(r.Context(), CurrentUser(r), &g); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, g)
	}
}

func handleDeleteGuest(svc *service.RegistryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "guestID")
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid guest id"})
			return
		}
		if err := svc.DeleteGuest(r.Context(), CurrentUser(r), id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handlePublishNotice(svc *service.RegistryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var n domain.Notice
		if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		if err := svc.PublishNotice(r.Context(), CurrentUser(r), &n); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, n)
	}
}

func handleListNotices(svc *service.RegistryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		notices, err := svc.ListNotices(r.Context(), r.URL.Query().Get("type"))
		if err != nil {
			writeError(w, err)
			return
		}
		if notices == nil {
			notices = []*domain.Notice{}
		}
		writeJSON(w, http.StatusOK, notices)
	}
}

func handleDeleteNotice(svc *service.RegistryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "noticeID")
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid notice id"})
			return
		}
		if err := svc.DeleteNotice(r.Context(), CurrentUser(r), id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleScheduleEvent(svc *service.RegistryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var e domain.Event
		if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		if err := svc.ScheduleEvent(r.Context(), CurrentUser(r), &e); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, e)
	}
}

func handleListEvents(svc *service.RegistryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		upcoming := r.URL.Query().Get("upcoming") == "true"
		events, err := svc.ListEvents(r.Context(), upcoming)
		if err != nil {
			writeError(w, err)
			return
		}
		if events == nil {
			events = []*domain.Event{}
		}
		writeJSON(w, http.StatusOK, events)
	}
}

func handleUpdateEvent(svc *service.RegistryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "eventID")
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid event id"})
			return
		}
		var e domain.Event
		if err := json.NewDecoder(r.Body).Decode(&e); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		e.ID = id
		if err := svc.UpdateEvent(r.Context(), CurrentUser(r), &e); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, e)
	}
}

func handleDeleteEvent(svc *service.RegistryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "eventID")
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid event id"})
			return
		}
		if err := svc.DeleteEvent(r.Context(), CurrentUser(r), id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

type swearingRequest struct {
	CeremonyChoice domain.CeremonyChoice `json:"ceremony_choice"`
	ReligiousText  string                `json:"religious_text"`
}

func handleSaveSwearingPreference(svc *service.RegistryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req swearingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		p, err := svc.SaveSwearingPreference(r.Context(), CurrentUser(r), req.CeremonyChoice, req.ReligiousText)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func handleMySwearingPreference(svc *service.RegistryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p, err := svc.MySwearingPreference(r.Context(), CurrentUser(r))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func handleListSwearingPreferences(svc *service.RegistryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		prefs, err := svc.ListSwearingPreferences(r.Context(), CurrentUser(r))
		if err != nil {
			writeError(w, err)
			return
		}
		if prefs == nil {
			prefs = []*domain.SwearingPreference{}
		}
		writeJSON(w, http.StatusOK, prefs)
	}
}

func handleSwearingPreferenceFor(svc *service.RegistryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "userID")
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user id"})
			return
		}
		p, err := svc.SwearingPreferenceFor(r.Context(), CurrentUser(r), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func handleSetSwearingPreference(svc *service.RegistryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "userID")
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user id"})
			return
		}
		var req swearingRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		p, err := svc.SetSwearingPreference(r.Context(), CurrentUser(r), id, req.CeremonyChoice, req.ReligiousText)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, p)
	}
}

func handleDeleteSwearingPreference(svc *service.RegistryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "userID")
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user id"})
			return
		}
		if err := svc.DeleteSwearingPreference(r.Context(), CurrentUser(r), id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleUpsertCourtInfo(svc *service.RegistryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var c domain.CourtInfo
		if err := json.NewDecoder(r.Body).Decode(&c); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid JSON body"})
			return
		}
		if err := svc.UpsertCourtInfo(r.Context(), CurrentUser(r), &c); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, c)
	}
}

func handleListCourtInfo(svc *service.RegistryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		info, err := svc.ListCourtInfo(r.Context(), r.URL.Query().Get("section"))
		if err != nil {
			writeError(w, err)
			return
		}
		if info == nil {
			info = []*domain.CourtInfo{}
		}
		writeJSON(w, http.StatusOK, info)
	}
}

func handleDeleteCourtInfo(svc *service.RegistryService) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r, "infoID")
		if !ok {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid id"})
			return
		}
		if err := svc.DeleteCourtInfo(r.Context(), CurrentUser(r), id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}
