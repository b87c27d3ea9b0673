package event

import (
	"context"

	"github.com/gravadigital/campuscast-api/internal/domain/identity"
)

// Repository persists the whole collection as one unit. Load returns a nil
// collection when nothing has been stored yet.
type Repository interface {
	Load(ctx context.Context) (Collection, error)
	Save(ctx context.Context, events Collection) error
}

// IdentitySource tells the store who is acting
type IdentitySource interface {
	CurrentIdentity() *identity.Identity
}
