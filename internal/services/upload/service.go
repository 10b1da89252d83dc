package upload

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/joseph-ayodele/invoice-intake/constants"
	"github.com/joseph-ayodele/invoice-intake/internal/audit"
	"github.com/joseph-ayodele/invoice-intake/internal/common"
	"github.com/joseph-ayodele/invoice-intake/internal/core/async"
	"github.com/joseph-ayodele/invoice-intake/internal/core/batch"
	"github.com/joseph-ayodele/invoice-intake/internal/core/extraction"
	"github.com/joseph-ayodele/invoice-intake/internal/entity"
)

// Extractor turns one file into metadata records.
type Extractor interface {
	Extract(ctx context.Context, filename string, content []byte, layoutName string) (*extraction.Result, error)
}

// Service handles upload business logic: extract, stage, summarize.
type Service struct {
	extractor Extractor
	workflow  *batch.Workflow
	tx        batch.Transactor
	runner    *async.Runner
	audit     audit.Recorder
	logger    *slog.Logger
}

// NewService creates a new upload service.
func NewService(ext Extractor, wf *batch.Workflow, tx batch.Transactor, runner *async.Runner, recorder audit.Recorder, logger *slog.Logger) *Service {
	if recorder == nil {
		recorder = audit.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		extractor: ext,
		workflow:  wf,
		tx:        tx,
		runner:    runner,
		audit:     recorder,
		logger:    logger,
	}
}

// Request represents one uploaded file.
type Request struct {
	Filename   string
	Content    []byte
	Layout     string
	Comment    string
	CostCenter string
}

// Result is the staged outcome of an upload.
type Result struct {
	BatchID   string                 `json:"batchId"`
	Layout    string                 `json:"layout"`
	CodePath  bool                   `json:"codePath"`
	Documents []entity.StagedSummary `json:"documents"`
	Errors    []string               `json:"errors"`
}

// Upload extracts the file and stages every record in a new batch. The whole
// unit of work runs under the runner's deadline. Records that repeat a stored
// invoice are staged too; the commit reports them as duplicates.
func (s *Service) Upload(ctx context.Context, req Request) (*Result, error) {
	validator := common.NewValidator()
	validator.Field("file", req.Filename, common.Required)
	validator.Field("comment", req.Comment, common.MaxLength(1000))
	validator.Field("costCenter", req.CostCenter, common.MaxLength(100))
	if err := common.ValidateAndReturnInputError(validator); err != nil {
		return nil, err
	}
	if len(req.Content) == 0 {
		return nil, common.InputError("could not read file %q", req.Filename)
	}

	s.logger.Info("starting upload", "file", req.Filename, "layout", req.Layout, "bytes", len(req.Content))
	res, err := async.Run(ctx, s.runner, "upload", func(ctx context.Context) (*Result, error) {
		return s.process(ctx, req)
	})
	if err != nil {
		s.logger.Error("upload failed", "file", req.Filename, "error", err)
		return nil, err
	}

	s.audit.Record(ctx, constants.AuditUpload, audit.TagFile, audit.File{Name: req.Filename})
	s.logger.Info("upload staged", "file", req.Filename, "batch_id", res.BatchID, "documents", len(res.Documents))
	return res, nil
}

func (s *Service) process(ctx context.Context, req Request) (*Result, error) {
	ext, err := s.extractor.Extract(ctx, req.Filename, req.Content, strings.TrimSpace(req.Layout))
	if err != nil {
		return nil, err
	}

	out := &Result{Layout: ext.Layout, CodePath: ext.CodePath, Errors: []string{}}
	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		b, err := s.workflow.CreateBatch(ctx)
		if err != nil {
			return err
		}
		out.BatchID = b.ID
		out.Documents = make([]entity.StagedSummary, 0, len(ext.Records))
		for i, rec := range ext.Records {
			doc, err := s.workflow.StageDocument(ctx, b.ID, batch.Staging{
				Filename:   req.Filename,
				FileType:   ext.FileType,
				Content:    req.Content,
				Layout:     ext.Layout,
				Metadata:   rec.Metadata,
				Comment:    req.Comment,
				CostCenter: req.CostCenter,
				Extracted:  rec.Extracted,
			})
			if err != nil {
				return err
			}
			out.Documents = append(out.Documents, doc.Summary())
			if !rec.Extracted {
				out.Errors = append(out.Errors, fmt.Sprintf("record %d of %s: no invoice data could be extracted", i+1, req.Filename))
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
