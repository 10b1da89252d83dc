package ingest

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-intake/internal/entity"
	"github.com/joseph-ayodele/invoice-intake/internal/services/upload"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeUploader struct {
	seen []upload.Request
}

func (f *fakeUploader) Upload(_ context.Context, req upload.Request) (*upload.Result, error) {
	f.seen = append(f.seen, req)
	if req.Filename == "broken.pdf" {
		return nil, errors.New("could not read file")
	}
	return &upload.Result{BatchID: "b-" + req.Filename, Documents: []entity.StagedSummary{{FileID: "1"}}}, nil
}

func write(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o600))
}

func TestDirectory(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, "a.pdf"))
	write(t, filepath.Join(root, "sub", "b.JPG"))
	write(t, filepath.Join(root, "notes.txt"))
	write(t, filepath.Join(root, "broken.pdf"))
	write(t, filepath.Join(root, ".hidden", "c.png"))
	write(t, filepath.Join(root, ".d.png"))

	up := &fakeUploader{}
	results, stats, err := Directory(context.Background(), up, root, Options{Layout: "Acme", SkipHidden: true}, quiet)
	require.NoError(t, err)

	assert.Equal(t, uint32(3), stats.Matched)
	assert.Equal(t, uint32(2), stats.Succeeded)
	assert.Equal(t, uint32(1), stats.Failed)
	require.Len(t, results, 3)

	var names []string
	for _, r := range up.seen {
		names = append(names, r.Filename)
		assert.Equal(t, "Acme", r.Layout)
	}
	sort.Strings(names)
	assert.Equal(t, []string{"a.pdf", "b.JPG", "broken.pdf"}, names)
}

func TestDirectoryIncludesHiddenWhenAsked(t *testing.T) {
	root := t.TempDir()
	write(t, filepath.Join(root, ".d.png"))

	up := &fakeUploader{}
	_, stats, err := Directory(context.Background(), up, root, Options{}, quiet)
	require.NoError(t, err)
	assert.Equal(t, uint32(1), stats.Succeeded)
}

func TestDirectorySingleFileAndErrors(t *testing.T) {
	root := t.TempDir()
	file := filepath.Join(root, "one.pdf")
	write(t, file)

	up := &fakeUploader{}
	results, _, err := Directory(context.Background(), up, file, Options{SkipHidden: true}, quiet)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b-one.pdf", results[0].BatchID)

	_, _, err = Directory(context.Background(), up, " ", Options{}, quiet)
	assert.Error(t, err)
}
