package server

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/joseph-ayodele/invoice-intake/internal/common"
	"github.com/joseph-ayodele/invoice-intake/internal/entity"
	"github.com/joseph-ayodele/invoice-intake/internal/export"
	"github.com/joseph-ayodele/invoice-intake/internal/repository"
	"github.com/joseph-ayodele/invoice-intake/internal/services/invoices"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// parseFilter reads from/to (YYYY-MM-DD, both inclusive), issuer, limit and offset.
func parseFilter(q url.Values) (repository.InvoiceFilter, error) {
	var f repository.InvoiceFilter
	if v := strings.TrimSpace(q.Get("from")); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return f, common.InputError("from must be YYYY-MM-DD")
		}
		f.From = t
	}
	if v := strings.TrimSpace(q.Get("to")); v != "" {
		t, err := time.Parse("2006-01-02", v)
		if err != nil {
			return f, common.InputError("to must be YYYY-MM-DD")
		}
		f.To = t.AddDate(0, 0, 1)
	}
	f.Issuer = strings.TrimSpace(q.Get("issuer"))
	for name, dst := range map[string]*int{"limit": &f.Limit, "offset": &f.Offset} {
		v := strings.TrimSpace(q.Get(name))
		if v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return f, common.InputError("%s must be a non-negative integer", name)
		}
		*dst = n
	}
	return f, nil
}

func (h *Handler) listInvoices(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if f.Limit == 0 {
		f.Limit = invoices.RecentLimit
	}
	list, err := h.deps.Invoices.List(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	if list == nil {
		list = []entity.Invoice{}
	}
	writeJSON(w, http.StatusOK, list)
}

func (h *Handler) getInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := h.deps.Invoices.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (h *Handler) editInvoice(w http.ResponseWriter, r *http.Request) {
	var md entity.InvoiceMetadata
	if err := decodeJSON(r, &md); err != nil {
		h.fail(w, r, err)
		return
	}
	inv, err := h.deps.Invoices.EditMetadata(r.Context(), chi.URLParam(r, "id"), md)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, inv)
}

func (h *Handler) deleteInvoice(w http.ResponseWriter, r *http.Request) {
	if _, err := h.deps.Invoices.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) exportInvoices(w http.ResponseWriter, r *http.Request) {
	f, err := parseFilter(r.URL.Query())
	if err != nil {
		h.fail(w, r, err)
		return
	}
	data, err := h.deps.Export.ExportInvoicesXLSX(r.Context(), f)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(time.Now())))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
