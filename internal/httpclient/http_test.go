package httpclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSendJSON_PostsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		var in map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
		_ = json.NewEncoder(w).Encode(map[string]string{"echo": in["vatNumber"]})
	}))
	defer srv.Close()

	raw, err := SendJSON(context.Background(), srv.Client(), "test", srv.URL, map[string]string{"vatNumber": "123"}, nil)
	require.NoError(t, err)
	assert.JSONEq(t, `{"echo":"123"}`, string(raw))
}

func TestSendFile_MultipartField(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		f, hdr, err := r.FormFile("image")
		require.NoError(t, err)
		defer f.Close()
		b, _ := io.ReadAll(f)
		assert.Equal(t, "page.jpg", hdr.Filename)
		assert.Equal(t, "bytes", string(b))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	_, err := SendFile(context.Background(), srv.Client(), "test", srv.URL, "image", "page.jpg", []byte("bytes"), nil)
	require.NoError(t, err)
}

func TestSend_StatusErrorClassifies(t *testing.T) {
	var code atomic.Int32
	code.Store(http.StatusNotFound)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(int(code.Load()))
	}))
	defer srv.Close()

	_, err := SendJSON(context.Background(), srv.Client(), "test", srv.URL, struct{}{}, nil)
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.True(t, se.ClientError())

	code.Store(http.StatusBadGateway)
	_, err = SendJSON(context.Background(), srv.Client(), "test", srv.URL, struct{}{}, nil)
	require.True(t, errors.As(err, &se))
	assert.True(t, se.ServerError())
}
