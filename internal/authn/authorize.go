package authn

import (
	"context"

	"preuvio/internal/platform/middleware"
	"preuvio/pkg/domain"
	dErrors "preuvio/pkg/domain-errors"
)

// RequirePlatformRole checks that the authenticated caller belongs to the
// given platform and holds one of the listed roles. Unauthorized when no
// claims are present, Forbidden on platform or role mismatch.
func RequirePlatformRole(ctx context.Context, platformID domain.PlatformID, roles ...string) error {
	claimPlatform := middleware.GetPlatformID(ctx)
	claimRole := middleware.GetRole(ctx)
	if claimPlatform == "" || claimRole == "" {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if claimPlatform != platformID.String() {
		return dErrors.New(dErrors.CodeForbidden, "caller does not belong to this platform")
	}
	for _, role := range roles {
		if claimRole == role {
			return nil
		}
	}
	return dErrors.New(dErrors.CodeForbidden, "insufficient role for this operation")
}
