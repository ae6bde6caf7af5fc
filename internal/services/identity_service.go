package services

import (
	"context"
	"fmt"

	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/core"
	"github.com/jacemadedev/Supastart-by-Klip-sub001/internal/models"
)

// IdentityService turns the principal placed on the context by the auth
// middleware into a caller with a live billing organization.
type IdentityService struct {
	store core.LedgerStore
}

func NewIdentityService(store core.LedgerStore) *IdentityService {
	return &IdentityService{store: store}
}

func (s *IdentityService) Resolve(ctx context.Context) (core.Principal, *models.Organization, error) {
	p, ok := core.PrincipalFromContext(ctx)
	if !ok {
		return core.Principal{}, nil, fmt.Errorf("%w: no principal on request", core.ErrUnauthenticated)
	}
	org, err := s.store.GetOrganization(ctx, p.OrganizationID)
	if err != nil {
		return core.Principal{}, nil, fmt.Errorf("resolve organization: %w", err)
	}
	if org == nil {
		return core.Principal{}, nil, fmt.Errorf("%w: organization not found", core.ErrUnauthenticated)
	}
	return p, org, nil
}
