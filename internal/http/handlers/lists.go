package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	apierrors "github.com/pribylovaa/go-movie-catalog/internal/errors"
	"github.com/pribylovaa/go-movie-catalog/internal/http/dto"
	"github.com/pribylovaa/go-movie-catalog/internal/models"
)

// ListContent - GET /v1/lists/{list}?page=&page_size=&period=&sort=&category=&vip_only=
func (h *Handlers) ListContent(w http.ResponseWriter, r *http.Request) {
	opts, err := dto.ParseListQuery(chi.URLParam(r, "list"), r.URL.Query())
	if err != nil {
		apierrors.WriteError(w, r, errInvalidArgument(err))
		return
	}

	page, err := h.Catalog.ListContent(r.Context(), opts)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListFromModel(page))
}

// ListCollectionItems - GET /v1/collections/{id}/items?page=&page_size=&sort=
// Фильмы подборки; в ответе есть и сама подборка (collection).
func (h *Handlers) ListCollectionItems(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		apierrors.WriteError(w, r, errInvalidArgument(errors.New("empty collection id")))
		return
	}

	opts, err := dto.ParseListQuery(string(models.ListCollection), r.URL.Query())
	if err != nil {
		apierrors.WriteError(w, r, errInvalidArgument(err))
		return
	}
	opts.Filter.CollectionID = id

	page, err := h.Catalog.ListContent(r.Context(), opts)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.ListFromModel(page))
}

// GetContentByID - GET /v1/content/{id}
func (h *Handlers) GetContentByID(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimSpace(chi.URLParam(r, "id"))
	if id == "" {
		apierrors.WriteError(w, r, errInvalidArgument(errors.New("empty id")))
		return
	}

	item, err := h.Catalog.ContentByID(r.Context(), id)
	if err != nil {
		apierrors.WriteError(w, r, err)
		return
	}

	out := dto.ItemFromModel(*item)
	writeJSON(w, http.StatusOK, dto.ItemResponse{Item: &out})
}
