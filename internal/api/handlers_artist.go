package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/backlinefm/backline/internal/roster"
)

func (r *Router) handleListArtists(w http.ResponseWriter, req *http.Request) {
	params := roster.ListParams{
		Sort:   req.URL.Query().Get("sort"),
		Filter: req.URL.Query().Get("filter"),
	}
	artists, err := r.rosterService.List(req.Context(), params)
	if err != nil {
		r.logger.Error("listing artists failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	if artists == nil {
		artists = []roster.Artist{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"artists": artists,
		"count":   len(artists),
	})
}

func (r *Router) handleGetArtist(w http.ResponseWriter, req *http.Request) {
	artist, err := r.rosterService.GetByID(req.Context(), req.PathValue("id"))
	if errors.Is(err, roster.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "artist not found"})
		return
	}
	if err != nil {
		r.logger.Error("getting artist failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, artist)
}

type artistRequest struct {
	Name          string `json:"name"`
	ImageURL      string `json:"image_url"`
	CatalogID     string `json:"catalog_id"`
	CatalogURL    string `json:"catalog_url"`
	AppleMusicURL string `json:"apple_music_url"`
	InstagramURL  string `json:"instagram_url"`
}

func (r *Router) handleCreateArtist(w http.ResponseWriter, req *http.Request) {
	var body artistRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if body.Name == "" || len(body.Name) > 100 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required and must be at most 100 characters"})
		return
	}

	artist := &roster.Artist{
		Name:          body.Name,
		ImageURL:      body.ImageURL,
		CatalogID:     body.CatalogID,
		CatalogURL:    body.CatalogURL,
		AppleMusicURL: body.AppleMusicURL,
		InstagramURL:  body.InstagramURL,
	}
	if err := r.rosterService.Create(req.Context(), artist); err != nil {
		r.logger.Error("creating artist failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusCreated, artist)
}

func (r *Router) handleUpdateArtist(w http.ResponseWriter, req *http.Request) {
	var body artistRequest
	if err := json.NewDecoder(req.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if body.Name == "" || len(body.Name) > 100 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "name is required and must be at most 100 characters"})
		return
	}

	artist := &roster.Artist{
		ID:            req.PathValue("id"),
		Name:          body.Name,
		ImageURL:      body.ImageURL,
		CatalogID:     body.CatalogID,
		CatalogURL:    body.CatalogURL,
		AppleMusicURL: body.AppleMusicURL,
		InstagramURL:  body.InstagramURL,
	}
	err := r.rosterService.Update(req.Context(), artist)
	if errors.Is(err, roster.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "artist not found"})
		return
	}
	if err != nil {
		r.logger.Error("updating artist failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, artist)
}

func (r *Router) handleDeleteArtist(w http.ResponseWriter, req *http.Request) {
	err := r.rosterService.Delete(req.Context(), req.PathValue("id"))
	if errors.Is(err, roster.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "artist not found"})
		return
	}
	if err != nil {
		r.logger.Error("deleting artist failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}
