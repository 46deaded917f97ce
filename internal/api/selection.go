package api

import (
	"encoding/json"
	"net/http"
)

type tabRequest struct {
	Tab string `json:"tab"`
}

type toggleRequest struct {
	URL string `json:"url"`
}

type selectAllRequest struct {
	Selected bool `json:"selected"`
}

type selectionResponse struct {
	Tab      string   `json:"tab"`
	Selected []string `json:"selected"`
}

func (h *Handler) handleSetTab(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r.Context(), r.PathValue("id"))
	if err != nil {
		writeSessionError(w, err)
		return
	}

	var req tabRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.Tab == "" {
		writeError(w, http.StatusBadRequest, "tab is required")
		return
	}

	if err := s.SetTab(req.Tab); err != nil {
		writeSessionError(w, err)
		return
	}
	tab, urls := s.Selected()
	h.writeSelection(w, tab, urls)
}

func (h *Handler) handleGetSelection(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r.Context(), r.PathValue("id"))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	tab, urls := s.Selected()
	h.writeSelection(w, tab, urls)
}

func (h *Handler) handleToggle(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r.Context(), r.PathValue("id"))
	if err != nil {
		writeSessionError(w, err)
		return
	}

	var req toggleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.URL == "" {
		writeError(w, http.StatusBadRequest, "url is required")
		return
	}

	if _, err := s.Toggle(req.URL); err != nil {
		writeSessionError(w, err)
		return
	}
	tab, urls := s.Selected()
	h.writeSelection(w, tab, urls)
}

func (h *Handler) handleSelectAll(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r.Context(), r.PathValue("id"))
	if err != nil {
		writeSessionError(w, err)
		return
	}

	req := selectAllRequest{Selected: true}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
			return
		}
	}

	if err := s.SelectAll(req.Selected); err != nil {
		writeSessionError(w, err)
		return
	}
	tab, urls := s.Selected()
	h.writeSelection(w, tab, urls)
}

func (h *Handler) handleClearSelection(w http.ResponseWriter, r *http.Request) {
	s, err := h.session(r.Context(), r.PathValue("id"))
	if err != nil {
		writeSessionError(w, err)
		return
	}
	s.ClearSelection()
	tab, urls := s.Selected()
	h.writeSelection(w, tab, urls)
}

func (h *Handler) writeSelection(w http.ResponseWriter, tab string, urls []string) {
	if urls == nil {
		urls = []string{}
	}
	writeJSON(w, http.StatusOK, selectionResponse{Tab: tab, Selected: urls})
}
