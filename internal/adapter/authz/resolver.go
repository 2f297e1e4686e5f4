package authz

import (
	"context"

	"github.com/fieldflow/fieldflow/internal/domain"
)

// Compile-time check: Resolver implements domain.TenantResolver.
var _ domain.TenantResolver = (*Resolver)(nil)

// Resolver derives the tenancy of a call from the actor. Platform
// administrators without a tenant of their own operate cross-tenant;
// everyone else is confined to their tenant.
type Resolver struct{}

// NewResolver creates a tenant resolver.
func NewResolver() *Resolver {
	return &Resolver{}
}

func (Resolver) Resolve(_ context.Context, actor domain.Actor) (domain.TenantContext, error) {
	if actor.Role == domain.RolePlatformAdmin && actor.TenantID == "" {
		return domain.TenantContext{CrossTenant: true}, nil
	}
	if actor.TenantID == "" {
		return domain.TenantContext{}, &domain.ValidationError{
			Required: "tenant",
			Message:  "actor has no tenant",
		}
	}
	return domain.TenantContext{TenantID: actor.TenantID}, nil
}
