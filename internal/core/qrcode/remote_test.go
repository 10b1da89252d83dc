package qrcode

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func remoteFor(t *testing.T, h http.HandlerFunc) *RemoteDecoder {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewRemoteDecoder(RemoteConfig{BaseURL: srv.URL + "/", Timeout: 2 * time.Second}, quiet)
}

func TestRemoteDecoder_ReturnsEveryQRCode(t *testing.T) {
	d := remoteFor(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/decode", r.URL.Path)
		_, _, err := r.FormFile("image")
		assert.NoError(t, err)
		_, _ = w.Write([]byte(`[{"type":"EAN13","data":"123"},{"type":"QRCODE","data":"A:1*F:20240101"},{"type":"QRCODE","data":"second"}]`))
	})

	texts, err := d.Decode(context.Background(), "scan.jpg", []byte("img"))
	require.NoError(t, err)
	assert.Equal(t, []string{"A:1*F:20240101", "second"}, texts)
}

func TestRemoteDecoder_NoQRCodeIsEmpty(t *testing.T) {
	d := remoteFor(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"type":"EAN13","data":"123"}]`))
	})
	texts, err := d.Decode(context.Background(), "scan.jpg", []byte("img"))
	require.NoError(t, err)
	assert.Empty(t, texts)
}

func TestRemoteDecoder_StatusMapping(t *testing.T) {
	d := remoteFor(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	_, err := d.Decode(context.Background(), "scan.jpg", []byte("img"))
	assert.ErrorIs(t, err, ErrNoContent)

	d = remoteFor(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})
	_, err = d.Decode(context.Background(), "scan.jpg", []byte("img"))
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestRemoteDecoder_TimeoutIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	d := NewRemoteDecoder(RemoteConfig{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, quiet)
	_, err := d.Decode(context.Background(), "scan.jpg", []byte("img"))
	assert.ErrorIs(t, err, ErrUnavailable)
}
