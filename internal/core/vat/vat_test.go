package vat

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeRegistry struct {
	res Result
	err error
	got []string
}

func (f *fakeRegistry) Check(_ context.Context, cc, number string) (Result, error) {
	f.got = append(f.got, cc+number)
	return f.res, f.err
}

type fakeHistory struct {
	name string
	err  error
}

func (f fakeHistory) LatestCompanyName(context.Context, string) (string, error) {
	return f.name, f.err
}

func TestResolver_RegistryWins(t *testing.T) {
	reg := &fakeRegistry{res: Result{Valid: true, CompanyName: "ACME LDA"}}
	r := NewResolver(reg, fakeHistory{name: "Old"}, "PT", quiet)

	assert.Equal(t, "ACME LDA", r.CompanyName(context.Background(), "PT500000000"))
	assert.Equal(t, []string{"PT500000000"}, reg.got)
}

func TestResolver_FallsBackToHistory(t *testing.T) {
	for _, reg := range []*fakeRegistry{
		{err: errors.New("soap fault")},
		{err: ErrNotRegistered},
		{res: Result{Valid: true}},
	} {
		r := NewResolver(reg, fakeHistory{name: "Stored Name"}, "PT", quiet)
		assert.Equal(t, "Stored Name", r.CompanyName(context.Background(), "500000000"))
	}
}

func TestResolver_NeverFails(t *testing.T) {
	r := NewResolver(&fakeRegistry{err: errors.New("down")}, fakeHistory{err: errors.New("db down")}, "PT", quiet)
	assert.Empty(t, r.CompanyName(context.Background(), "500000000"))

	r = NewResolver(nil, nil, "", quiet)
	assert.Empty(t, r.CompanyName(context.Background(), "500000000"))
	assert.Empty(t, r.CompanyName(context.Background(), ""))
}

func TestVIESClient_Check(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/check-vat-number", r.URL.Path)
		var req viesRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		switch req.VATNumber {
		case "500000000":
			_, _ = w.Write([]byte(`{"valid":true,"name":" ACME LDA ","address":"Lisboa"}`))
		case "111111111":
			_, _ = w.Write([]byte(`{"valid":true,"name":"---","address":"---"}`))
		default:
			_, _ = w.Write([]byte(`{"valid":false}`))
		}
	}))
	defer srv.Close()

	c := NewVIESClient(srv.URL, time.Second, quiet)
	res, err := c.Check(context.Background(), "PT", "500000000")
	require.NoError(t, err)
	assert.Equal(t, "ACME LDA", res.CompanyName)
	assert.Equal(t, "Lisboa", res.Address)

	res, err = c.Check(context.Background(), "PT", "111111111")
	require.NoError(t, err)
	assert.Empty(t, res.CompanyName)

	_, err = c.Check(context.Background(), "PT", "999999999")
	assert.ErrorIs(t, err, ErrNotRegistered)
}

func TestVIESClient_ServerErrorIsReturned(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := NewVIESClient(srv.URL, time.Second, quiet).Check(context.Background(), "PT", "1")
	assert.Error(t, err)
}
