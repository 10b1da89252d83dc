package layouts

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/joseph-ayodele/invoice-intake/constants"
	"github.com/joseph-ayodele/invoice-intake/internal/audit"
	"github.com/joseph-ayodele/invoice-intake/internal/common"
	"github.com/joseph-ayodele/invoice-intake/internal/core/layout"
	"github.com/joseph-ayodele/invoice-intake/internal/entity"
	"github.com/joseph-ayodele/invoice-intake/internal/repository"
)

// Service handles layout business logic.
type Service struct {
	repo   repository.LayoutRepository
	audit  audit.Recorder
	logger *slog.Logger
	now    func() time.Time
}

// NewService creates a new layout service.
func NewService(repo repository.LayoutRepository, recorder audit.Recorder, logger *slog.Logger) *Service {
	if recorder == nil {
		recorder = audit.Discard
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: recorder, logger: logger, now: time.Now}
}

// check rejects layouts whose rules cannot compile and logs rule warnings.
func (s *Service) check(l *entity.Layout) error {
	l.Name = strings.TrimSpace(l.Name)
	validator := common.NewValidator()
	validator.Field("name", l.Name, common.Required, common.MaxLength(100))
	if err := common.ValidateAndReturnInputError(validator); err != nil {
		return err
	}
	if strings.EqualFold(l.Name, constants.DefaultLayoutName) || strings.EqualFold(l.Name, constants.ManualLayoutName) {
		return common.InputError("layout name %q is reserved", l.Name)
	}
	_, warnings, err := layout.Compile(*l)
	if err != nil {
		return common.InputError("layout %q: %v", l.Name, err)
	}
	for _, w := range warnings {
		s.logger.Warn("layout.rule_warning", "layout", l.Name, "warning", w)
	}
	return nil
}

// Create stores a new layout. Names are unique.
func (s *Service) Create(ctx context.Context, l entity.Layout) (*entity.Layout, error) {
	if err := s.check(&l); err != nil {
		return nil, err
	}
	now := s.now().UTC()
	l.ID = uuid.NewString()
	l.CreatedBy = common.IdentityFromContext(ctx).Name()
	l.CreatedAt, l.UpdatedAt = now, now
	if err := s.repo.Create(ctx, &l); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, constants.AuditLayoutCreated, audit.TagLayout, audit.LayoutChange{After: l})
	s.logger.Info("layout created", "layout_id", l.ID, "name", l.Name, "rules", len(l.Fields))
	return &l, nil
}

// Update replaces the rules of an existing layout.
func (s *Service) Update(ctx context.Context, id string, l entity.Layout) (*entity.Layout, error) {
	if err := s.check(&l); err != nil {
		return nil, err
	}
	before, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	l.ID = id
	l.CreatedBy = before.CreatedBy
	l.CreatedAt = before.CreatedAt
	l.UpdatedAt = s.now().UTC()
	l.Version = before.Version + 1
	if err := s.repo.Update(ctx, &l); err != nil {
		return nil, err
	}
	s.audit.Record(ctx, constants.AuditLayoutUpdated, audit.TagLayout, audit.LayoutChange{Before: before, After: l})
	s.logger.Info("layout updated", "layout_id", id, "name", l.Name, "version", l.Version)
	return &l, nil
}

func (s *Service) Get(ctx context.Context, nameOrID string) (*entity.Layout, error) {
	return s.repo.Resolve(ctx, nameOrID)
}

func (s *Service) List(ctx context.Context) ([]entity.Layout, error) {
	return s.repo.List(ctx)
}

func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("layout deleted", "layout_id", id)
	return nil
}

// Import loads layouts from a YAML document. Layouts whose name already
// exists are updated in place, the rest are created.
func (s *Service) Import(ctx context.Context, data []byte) ([]entity.Layout, error) {
	parsed, err := layout.ParseYAML(data)
	if err != nil {
		return nil, common.InputError("%v", err)
	}
	out := make([]entity.Layout, 0, len(parsed))
	for _, l := range parsed {
		existing, err := s.repo.GetByName(ctx, strings.TrimSpace(l.Name))
		var saved *entity.Layout
		switch {
		case err == nil:
			saved, err = s.Update(ctx, existing.ID, l)
		case common.KindOf(err) == common.KindNotFound:
			saved, err = s.Create(ctx, l)
		}
		if err != nil {
			return out, err
		}
		out = append(out, *saved)
	}
	s.logger.Info("layouts imported", "count", len(out))
	return out, nil
}
