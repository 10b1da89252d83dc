package layouts

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/invoice-intake/constants"
	"github.com/joseph-ayodele/invoice-intake/internal/audit"
	"github.com/joseph-ayodele/invoice-intake/internal/common"
	"github.com/joseph-ayodele/invoice-intake/internal/entity"
	"github.com/joseph-ayodele/invoice-intake/internal/repository"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

type recorder struct {
	mu      sync.Mutex
	ops     []constants.AuditOperation
	changes []audit.LayoutChange
}

func (r *recorder) Record(_ context.Context, op constants.AuditOperation, _ audit.Tag, subject any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, op)
	if c, ok := subject.(audit.LayoutChange); ok {
		r.changes = append(r.changes, c)
	}
}

func setup(t *testing.T) (*Service, *recorder) {
	t.Helper()
	db, err := repository.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "layouts.db"), quiet)
	require.NoError(t, err)
	require.NoError(t, db.Migrate(context.Background()))
	t.Cleanup(func() { repository.Close(db, quiet) })

	rec := &recorder{}
	return NewService(repository.NewLayoutRepository(db, quiet), rec, quiet), rec
}

func acme() entity.Layout {
	return entity.Layout{
		Name:       "Acme",
		Language:   "por",
		DateFormat: "dd/MM/yyyy",
		Fields: []entity.FieldRule{
			{Name: "Invoice Number", Regex: `Invoice No: (\S+)`},
			{Name: "Total", Regex: `Total:\s*([\d.,]+)`},
		},
	}
}

func TestCreate_StampsCreator(t *testing.T) {
	svc, rec := setup(t)
	ctx := common.WithIdentity(context.Background(), common.Identity{Username: "carol"})

	l, err := svc.Create(ctx, acme())
	require.NoError(t, err)
	assert.NotEmpty(t, l.ID)
	assert.Equal(t, "carol", l.CreatedBy)

	byName, err := svc.Get(ctx, "Acme")
	require.NoError(t, err)
	assert.Equal(t, l.ID, byName.ID)
	assert.Len(t, byName.Fields, 2)

	assert.Equal(t, []constants.AuditOperation{constants.AuditLayoutCreated}, rec.ops)

	_, err = svc.Create(ctx, acme())
	assert.Equal(t, common.KindConflict, common.KindOf(err))
}

func TestCreate_RejectsReservedAndInvalid(t *testing.T) {
	svc, rec := setup(t)

	for _, name := range []string{"PT", "pt", "Manual", " "} {
		l := acme()
		l.Name = name
		_, err := svc.Create(context.Background(), l)
		assert.Equal(t, common.KindInput, common.KindOf(err), name)
	}

	bad := acme()
	bad.Fields = []entity.FieldRule{{Name: "Total", Regex: `(?<=x)(\d)`}}
	_, err := svc.Create(context.Background(), bad)
	assert.Equal(t, common.KindInput, common.KindOf(err))
	assert.Empty(t, rec.ops)
}

func TestUpdate_KeepsCreatorAndAuditsBefore(t *testing.T) {
	svc, rec := setup(t)
	created, err := svc.Create(context.Background(), acme())
	require.NoError(t, err)

	next := acme()
	next.Fields = next.Fields[:1]
	updated, err := svc.Update(context.Background(), created.ID, next)
	require.NoError(t, err)
	assert.Equal(t, created.CreatedBy, updated.CreatedBy)
	assert.Len(t, updated.Fields, 1)
	assert.Equal(t, 1, created.Version)
	assert.Equal(t, 2, updated.Version)
	stored, err := svc.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, stored.Version)

	require.Len(t, rec.changes, 2)
	require.NotNil(t, rec.changes[1].Before)
	assert.Len(t, rec.changes[1].Before.Fields, 2)
	assert.Equal(t, 1, rec.changes[1].Before.Version)
	assert.Equal(t, constants.AuditLayoutUpdated, rec.ops[1])

	_, err = svc.Update(context.Background(), "missing", acme())
	assert.Equal(t, common.KindNotFound, common.KindOf(err))
}

func TestImport_UpsertsByName(t *testing.T) {
	svc, _ := setup(t)
	_, err := svc.Create(context.Background(), acme())
	require.NoError(t, err)

	doc := []byte(`
layouts:
  - name: Acme
    language: por
    fieldMappings: [{name: Total, regex: 'TOTAL (\d+)'}]
  - name: Globex
    language: eng
    fieldMappings: [{name: Invoice Number, regex: 'No\. (\d+)'}]
`)
	imported, err := svc.Import(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, imported, 2)

	all, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Acme", all[0].Name)
	assert.Len(t, all[0].Fields, 1)

	_, err = svc.Import(context.Background(), []byte("name: NoRules\n"))
	assert.Equal(t, common.KindInput, common.KindOf(err))
}

func TestDelete(t *testing.T) {
	svc, _ := setup(t)
	l, err := svc.Create(context.Background(), acme())
	require.NoError(t, err)
	require.NoError(t, svc.Delete(context.Background(), l.ID))
	assert.Equal(t, common.KindNotFound, common.KindOf(svc.Delete(context.Background(), l.ID)))
}
