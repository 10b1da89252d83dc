package upload

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-intake/constants"
	"github.com/joseph-ayodele/invoice-intake/internal/audit"
	"github.com/joseph-ayodele/invoice-intake/internal/common"
	"github.com/joseph-ayodele/invoice-intake/internal/core/async"
	"github.com/joseph-ayodele/invoice-intake/internal/core/batch"
	"github.com/joseph-ayodele/invoice-intake/internal/core/commit"
	"github.com/joseph-ayodele/invoice-intake/internal/core/extraction"
	"github.com/joseph-ayodele/invoice-intake/internal/entity"
	"github.com/joseph-ayodele/invoice-intake/internal/repository"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeExtractor struct {
	result *extraction.Result
	err    error
	block  bool
}

func (f *fakeExtractor) Extract(ctx context.Context, filename string, _ []byte, layoutName string) (*extraction.Result, error) {
	if f.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	r := *f.result
	r.Filename = filename
	if layoutName != "" {
		r.Layout = layoutName
	}
	return &r, nil
}

type recorder struct {
	mu     sync.Mutex
	events []constants.AuditOperation
}

func (r *recorder) Record(_ context.Context, op constants.AuditOperation, _ audit.Tag, _ any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, op)
}

type fixture struct {
	wf     *batch.Workflow
	staged repository.StagedDocumentRepository
	rec    *recorder
	db     *repository.DB
}

func setup(t *testing.T) *fixture {
	t.Helper()
	db, err := repository.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "upload.db"), quiet)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background()))
	t.Cleanup(func() { repository.Close(db, quiet) })

	staged := repository.NewStagedDocumentRepository(db, quiet)
	return &fixture{
		db:     db,
		staged: staged,
		rec:    &recorder{},
		wf:     batch.NewWorkflow(db, repository.NewBatchRepository(db, quiet), staged, time.Hour, quiet),
	}
}

func (f *fixture) service(ext Extractor, budget time.Duration) *Service {
	return NewService(ext, f.wf, f.db, async.NewRunner(budget, 0, quiet), f.rec, quiet)
}

func record(number string, extracted bool) extraction.Record {
	return extraction.Record{
		Metadata: entity.InvoiceMetadata{
			IssuerVATNumber: "123456789",
			InvoiceNumber:   number,
			InvoiceDate:     entity.NewDate(2024, time.March, 1),
			Items:           []entity.LineItem{},
		},
		Extracted: extracted,
	}
}

func TestUpload_StagesEveryRecordInOneBatch(t *testing.T) {
	f := setup(t)
	ext := &fakeExtractor{result: &extraction.Result{
		FileType: constants.FileTypePDF,
		Layout:   constants.DefaultLayoutName,
		CodePath: true,
		Records:  []extraction.Record{record("FT 1", true), record("FT 2", true)},
	}}
	svc := f.service(ext, time.Minute)

	res, err := svc.Upload(context.Background(), Request{
		Filename:   "two.pdf",
		Content:    []byte("%PDF"),
		Comment:    "fuel",
		CostCenter: "CC-1",
	})
	require.NoError(t, err)
	assert.NotEmpty(t, res.BatchID)
	assert.True(t, res.CodePath)
	assert.Empty(t, res.Errors)
	require.Len(t, res.Documents, 2)
	for _, d := range res.Documents {
		assert.Equal(t, constants.DocumentStateReview, d.State)
	}

	docs, err := f.wf.Documents(context.Background(), res.BatchID)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, "fuel", docs[0].Metadata.Comment)
	assert.Equal(t, "CC-1", docs[0].Metadata.CostCenter)
	assert.Equal(t, []constants.AuditOperation{constants.AuditUpload}, f.rec.events)
}

func TestUpload_ReportsRecordsWithoutData(t *testing.T) {
	f := setup(t)
	ext := &fakeExtractor{result: &extraction.Result{
		FileType: constants.FileTypeImage,
		Layout:   constants.DefaultLayoutName,
		CodePath: true,
		Records:  []extraction.Record{{Metadata: entity.DefaultMetadata("blank.png", time.Now())}},
	}}
	res, err := f.service(ext, time.Minute).Upload(context.Background(), Request{
		Filename: "blank.png",
		Content:  []byte{1},
	})
	require.NoError(t, err)
	require.Len(t, res.Documents, 1)
	require.Len(t, res.Errors, 1)
	assert.Contains(t, res.Errors[0], "blank.png")
}

func TestUpload_StoredDuplicateIsStagedAndReportedAtCommit(t *testing.T) {
	for _, tc := range []struct {
		name     string
		layout   string
		codePath bool
	}{
		{name: "ocr path", layout: "Acme"},
		{name: "code path", layout: constants.DefaultLayoutName, codePath: true},
	} {
		t.Run(tc.name, func(t *testing.T) {
			f := setup(t)
			ctx := context.Background()
			invoiceRepo := repository.NewInvoiceRepository(f.db, quiet)
			pipe := commit.NewPipeline(f.db, invoiceRepo, f.staged, f.wf, nil, quiet)
			stored, err := pipe.CommitManual(ctx, commit.Manual{Filename: "first.pdf", Metadata: record("A-7", true).Metadata})
			require.NoError(t, err)

			ext := &fakeExtractor{result: &extraction.Result{
				FileType: constants.FileTypePDF,
				Layout:   tc.layout,
				CodePath: tc.codePath,
				Records:  []extraction.Record{record("A-7", true)},
			}}
			res, err := f.service(ext, time.Minute).Upload(ctx, Request{
				Filename: "again.pdf",
				Content:  []byte("%PDF"),
				Layout:   tc.layout,
			})
			require.NoError(t, err)
			require.Len(t, res.Documents, 1)
			assert.Empty(t, res.Errors)
			assert.Equal(t, []constants.AuditOperation{constants.AuditUpload}, f.rec.events)

			committed, err := pipe.SaveBatch(ctx, res.BatchID)
			require.NoError(t, err)
			assert.Empty(t, committed.Saved)
			require.Len(t, committed.Duplicated, 1)
			assert.Equal(t, stored.ID, committed.Duplicated[0].ID)

			n, err := invoiceRepo.Count(ctx)
			require.NoError(t, err)
			assert.Equal(t, 1, n)
		})
	}
}

func TestUpload_RejectsInvalidInput(t *testing.T) {
	f := setup(t)
	svc := f.service(&fakeExtractor{}, time.Minute)

	_, err := svc.Upload(context.Background(), Request{Content: []byte{1}})
	assert.Equal(t, common.KindInput, common.KindOf(err))

	_, err = svc.Upload(context.Background(), Request{Filename: "x.pdf"})
	assert.Equal(t, common.KindInput, common.KindOf(err))
}

func TestUpload_ExtractionErrorStagesNothing(t *testing.T) {
	f := setup(t)
	svc := f.service(&fakeExtractor{err: common.InputError("unsupported file type")}, time.Minute)
	_, err := svc.Upload(context.Background(), Request{Filename: "x.gif", Content: []byte{1}})
	assert.Equal(t, common.KindInput, common.KindOf(err))
	assert.Empty(t, f.rec.events)
}

func TestUpload_TimesOut(t *testing.T) {
	f := setup(t)
	svc := f.service(&fakeExtractor{block: true}, 50*time.Millisecond)
	_, err := svc.Upload(context.Background(), Request{Filename: "slow.pdf", Content: []byte("%PDF")})
	require.Error(t, err)
	assert.True(t, errors.Is(err, common.ErrTimeout))
	assert.Equal(t, common.KindTimeout, common.KindOf(err))
}
