package server

import (
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/joseph-ayodele/invoice-intake/internal/common"
	"github.com/joseph-ayodele/invoice-intake/internal/core/commit"
	"github.com/joseph-ayodele/invoice-intake/internal/entity"
	"github.com/joseph-ayodele/invoice-intake/internal/services/upload"
)

type formFile struct {
	name    string
	content []byte
}

// readFile parses the multipart body and returns the "file" part.
func (h *Handler) readFile(w http.ResponseWriter, r *http.Request) (*formFile, error) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		return nil, common.InputError("invalid multipart payload: %v", err)
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, common.InputError("file is required")
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		return nil, common.InputError("could not read file %q", header.Filename)
	}
	return &formFile{name: header.Filename, content: data}, nil
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	f, err := h.readFile(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.deps.Uploads.Upload(r.Context(), upload.Request{
		Filename:   f.name,
		Content:    f.content,
		Layout:     r.FormValue("layout"),
		Comment:    r.FormValue("comment"),
		CostCenter: r.FormValue("costCenter"),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, res)
}

type batchResponse struct {
	Batch     *entity.Batch          `json:"batch"`
	Documents []entity.StagedSummary `json:"documents"`
}

func (h *Handler) getBatch(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	b, err := h.deps.Workflow.Batch(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	docs, err := h.deps.Workflow.Review(r.Context(), id)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, batchResponse{Batch: b, Documents: docs})
}

func (h *Handler) saveBatch(w http.ResponseWriter, r *http.Request) {
	res, err := h.deps.Pipeline.SaveBatch(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) getStaged(w http.ResponseWriter, r *http.Request) {
	doc, err := h.deps.Workflow.GetStagedDocument(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

func (h *Handler) editStaged(w http.ResponseWriter, r *http.Request) {
	var md entity.InvoiceMetadata
	if err := decodeJSON(r, &md); err != nil {
		h.fail(w, r, err)
		return
	}
	doc, err := h.deps.Workflow.EditStagedMetadata(r.Context(), chi.URLParam(r, "id"), md)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

type idsRequest struct {
	IDs []string `json:"ids"`
}

func (h *Handler) deleteStaged(w http.ResponseWriter, r *http.Request) {
	var req idsRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.deps.Workflow.DeleteStagedDocuments(r.Context(), req.IDs)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *Handler) commit(w http.ResponseWriter, r *http.Request) {
	var req idsRequest
	if err := decodeJSON(r, &req); err != nil {
		h.fail(w, r, err)
		return
	}
	res, err := h.deps.Pipeline.Commit(r.Context(), req.IDs)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// manualInvoice stores a file with user-supplied metadata, skipping extraction.
// The metadata form field carries the invoice metadata as JSON.
func (h *Handler) manualInvoice(w http.ResponseWriter, r *http.Request) {
	f, err := h.readFile(w, r)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	var md entity.InvoiceMetadata
	if raw := strings.TrimSpace(r.FormValue("metadata")); raw != "" {
		if err := json.Unmarshal([]byte(raw), &md); err != nil {
			h.fail(w, r, common.InputError("invalid metadata: %v", err))
			return
		}
	}
	inv, err := h.deps.Pipeline.CommitManual(r.Context(), commit.Manual{
		Filename:   f.name,
		Content:    f.content,
		Metadata:   md,
		Comment:    r.FormValue("comment"),
		CostCenter: r.FormValue("costCenter"),
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, inv)
}
