package server

import (
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/joseph-ayodele/invoice-intake/internal/common"
	"github.com/joseph-ayodele/invoice-intake/internal/entity"
)

func (h *Handler) listLayouts(w http.ResponseWriter, r *http.Request) {
	list, err := h.deps.Layouts.List(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if list == nil {
		list = []entity.Layout{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) getLayout(w http.ResponseWriter, r *http.Request) {
	l, err := h.deps.Layouts.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (h *Handler) createLayout(w http.ResponseWriter, r *http.Request) {
	var l entity.Layout
	if err := decodeJSON(r, &l); err != nil {
		h.fail(w, r, err)
		return
	}
	created, err := h.deps.Layouts.Create(r.Context(), l)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (h *Handler) updateLayout(w http.ResponseWriter, r *http.Request) {
	var l entity.Layout
	if err := decodeJSON(r, &l); err != nil {
		h.fail(w, r, err)
		return
	}
	updated, err := h.deps.Layouts.Update(r.Context(), chi.URLParam(r, "id"), l)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *Handler) deleteLayout(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.Layouts.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// importLayouts takes a YAML document as the raw request body.
func (h *Handler) importLayouts(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxUpload))
	if err != nil {
		h.fail(w, r, common.InputError("could not read body: %v", err))
		return
	}
	list, err := h.deps.Layouts.Import(r.Context(), data)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}
