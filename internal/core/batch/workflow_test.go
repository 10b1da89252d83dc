package batch

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-intake/constants"
	"github.com/joseph-ayodele/invoice-intake/internal/common"
	"github.com/joseph-ayodele/invoice-intake/internal/entity"
	"github.com/joseph-ayodele/invoice-intake/internal/repository"
)

type fixture struct {
	db      *repository.DB
	batches repository.BatchRepository
	staged  repository.StagedDocumentRepository
	wf      *Workflow
}

func setup(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := repository.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "batch.db"), logger)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background()))
	t.Cleanup(func() { repository.Close(db, logger) })

	f := &fixture{
		db:      db,
		batches: repository.NewBatchRepository(db, logger),
		staged:  repository.NewStagedDocumentRepository(db, logger),
	}
	f.wf = NewWorkflow(db, f.batches, f.staged, 0, logger)
	return f
}

func (f *fixture) stage(t *testing.T, batchID, number string) *entity.StagedDocument {
	t.Helper()
	doc, err := f.wf.StageDocument(context.Background(), batchID, Staging{
		Filename:   number + ".png",
		FileType:   constants.FileTypeImage,
		Content:    []byte("png"),
		Layout:     constants.DefaultLayoutName,
		Metadata:   entity.InvoiceMetadata{IssuerVATNumber: "123456789", InvoiceNumber: number},
		Comment:    "office supplies",
		CostCenter: "CC-7",
		Extracted:  true,
	})
	require.NoError(t, err)
	return doc
}

func TestCreateBatch_ExpiresAfterTTL(t *testing.T) {
	f := setup(t)
	fixed := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	f.wf.now = func() time.Time { return fixed }

	b, err := f.wf.CreateBatch(context.Background())
	require.NoError(t, err)
	assert.Equal(t, constants.BatchStateUploaded, b.State)
	assert.Equal(t, fixed.Add(24*time.Hour), b.ExpirationDate)
}

func TestStageDocument_MovesBatchToReview(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	b, err := f.wf.CreateBatch(ctx)
	require.NoError(t, err)

	doc := f.stage(t, b.ID, "FT 1/1")
	assert.Equal(t, constants.DocumentStateReview, doc.State)
	assert.Equal(t, "office supplies", doc.Metadata.Comment)
	assert.Equal(t, "CC-7", doc.Metadata.CostCenter)

	got, err := f.wf.Batch(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, constants.BatchStateReview, got.State)

	_, err = f.wf.StageDocument(ctx, "missing", Staging{Filename: "x.png"})
	assert.Equal(t, common.KindNotFound, common.KindOf(err))
}

func TestReview(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	b, err := f.wf.CreateBatch(ctx)
	require.NoError(t, err)
	first := f.stage(t, b.ID, "FT 1/1")
	f.stage(t, b.ID, "FT 1/2")

	summaries, err := f.wf.Review(ctx, b.ID)
	require.NoError(t, err)
	require.Len(t, summaries, 2)
	assert.Equal(t, first.ID, summaries[0].FileID)
	assert.Equal(t, "FT 1/1.png", summaries[0].Filename)
	assert.Equal(t, "FT 1/1", summaries[0].Metadata.InvoiceNumber)

	_, err = f.wf.Review(ctx, "unknown")
	assert.Equal(t, common.KindNotFound, common.KindOf(err))
}

func TestEditStagedMetadata(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	b, err := f.wf.CreateBatch(ctx)
	require.NoError(t, err)
	doc := f.stage(t, b.ID, "FT 1/1")

	md := doc.Metadata
	md.Total = "10.00"
	updated, err := f.wf.EditStagedMetadata(ctx, doc.ID, md)
	require.NoError(t, err)
	assert.Equal(t, constants.DocumentStateEdited, updated.State)
	assert.Equal(t, "10.00", updated.Metadata.Total)

	_, err = f.wf.EditStagedMetadata(ctx, "missing", md)
	assert.Equal(t, common.KindNotFound, common.KindOf(err))
}

func TestDeleteStagedDocuments_LastDocumentDeletesBatch(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	b, err := f.wf.CreateBatch(ctx)
	require.NoError(t, err)
	first := f.stage(t, b.ID, "FT 1/1")
	second := f.stage(t, b.ID, "FT 1/2")

	res, err := f.wf.DeleteStagedDocuments(ctx, []string{first.ID, "nope"})
	require.NoError(t, err)
	assert.Equal(t, []string{first.ID}, res.Deleted)
	assert.Equal(t, []string{"nope"}, res.NotFound)
	assert.Empty(t, res.BatchesDeleted)
	_, err = f.wf.Batch(ctx, b.ID)
	require.NoError(t, err)

	res, err = f.wf.DeleteStagedDocuments(ctx, []string{second.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{b.ID}, res.BatchesDeleted)
	_, err = f.wf.Batch(ctx, b.ID)
	assert.Equal(t, common.KindNotFound, common.KindOf(err))

	_, err = f.wf.DeleteStagedDocuments(ctx, nil)
	assert.Equal(t, common.KindInput, common.KindOf(err))
	assert.ErrorIs(t, err, common.ErrValidation)
}

func TestSweepExpired(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	f.wf.now = func() time.Time { return start }

	old, err := f.wf.CreateBatch(ctx)
	require.NoError(t, err)
	doc := f.stage(t, old.ID, "FT 1/1")

	f.wf.now = func() time.Time { return start.Add(20 * time.Hour) }
	fresh, err := f.wf.CreateBatch(ctx)
	require.NoError(t, err)

	f.wf.now = func() time.Time { return start.Add(25 * time.Hour) }
	n, err := f.wf.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = f.wf.Batch(ctx, old.ID)
	assert.Equal(t, common.KindNotFound, common.KindOf(err))
	_, err = f.wf.GetStagedDocument(ctx, doc.ID)
	assert.Equal(t, common.KindNotFound, common.KindOf(err))
	_, err = f.wf.Batch(ctx, fresh.ID)
	assert.NoError(t, err)

	n, err = f.wf.SweepExpired(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestSweepExpired_ConcurrentRunsRemoveOnce(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	start := time.Now().UTC()
	f.wf.now = func() time.Time { return start }
	for i := 0; i < 5; i++ {
		_, err := f.wf.CreateBatch(ctx)
		require.NoError(t, err)
	}
	f.wf.now = func() time.Time { return start.Add(48 * time.Hour) }

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		total int
	)
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := f.wf.SweepExpired(ctx)
			assert.NoError(t, err)
			mu.Lock()
			total += n
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Equal(t, 5, total)
}
