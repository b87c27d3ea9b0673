package auth

import (
	"context"
	"strings"

	"github.com/gravadigital/campuscast-api/internal/domain/identity"
	"github.com/gravadigital/campuscast-api/internal/validation"
)

// LocalVerifier treats the credential as an email address. It is meant for
// development and tests, where no external identity service is available.
// A credential of the form "Name <email>" also sets the display name.
type LocalVerifier struct{}

func (LocalVerifier) Verify(_ context.Context, credential string) (*identity.Account, error) {
	credential = strings.TrimSpace(credential)

	var name string
	if open := strings.LastIndex(credential, "<"); open >= 0 && strings.HasSuffix(credential, ">") {
		name = strings.TrimSpace(credential[:open])
		credential = strings.TrimSpace(credential[open+1 : len(credential)-1])
	}

	if err := validation.ValidateEmail(credential); err != nil {
		return nil, err
	}

	return &identity.Account{
		DisplayName: name,
		Email:       credential,
	}, nil
}
