package app

import (
	"context"
	"strings"

	"github.com/joseph-ayodele/invoice-intake/internal/common"
	"github.com/joseph-ayodele/invoice-intake/internal/entity"
)

// StaticLayouts resolves layouts from an in-memory list, for runs without a store.
type StaticLayouts []entity.Layout

func (s StaticLayouts) Resolve(_ context.Context, nameOrID string) (*entity.Layout, error) {
	for i := range s {
		if s[i].ID == nameOrID {
			return &s[i], nil
		}
	}
	for i := range s {
		if strings.EqualFold(s[i].Name, nameOrID) {
			return &s[i], nil
		}
	}
	return nil, common.NotFound("layout", nameOrID)
}
