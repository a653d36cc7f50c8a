package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/backlinefm/backline/internal/playlist"
)

func (r *Router) handleShowcase(w http.ResponseWriter, req *http.Request) {
	showcase, err := r.playlistService.GetShowcase(req.Context())
	if err != nil {
		r.logger.Error("assembling showcase failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, showcase)
}

func (r *Router) handleUpsertPlaylist(w http.ResponseWriter, req *http.Request) {
	var p playlist.Playlist
	if err := json.NewDecoder(req.Body).Decode(&p); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if p.Name == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required"})
		return
	}

	if err := r.playlistService.Upsert(req.Context(), &p); err != nil {
		r.logger.Error("upserting playlist failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, &p)
}

func (r *Router) handleDeletePlaylist(w http.ResponseWriter, req *http.Request) {
	err := r.playlistService.Delete(req.Context(), req.PathValue("id"))
	if errors.Is(err, playlist.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "playlist not found"})
		return
	}
	if err != nil {
		r.logger.Error("deleting playlist failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
