package middleware

import (
	"context"
	"errors"
	"fmt"

	"github.com/Dosada05/duel-tournament/models"
	"github.com/golang-jwt/jwt/v4"
)

const (
	jwtClaimSubject = "sub"
	jwtClaimRole    = "role"
	jwtClaimTeamID  = "team_id"
)

var ErrNoClaims = errors.New("user claims not found in context or invalid type")

func claimsFromContext(ctx context.Context) (jwt.MapClaims, error) {
	claims, ok := ctx.Value(userContextKey).(jwt.MapClaims)
	if !ok {
		return nil, ErrNoClaims
	}
	return claims, nil
}

func stringClaim(ctx context.Context, name string) (string, error) {
	claims, err := claimsFromContext(ctx)
	if err != nil {
		return "", err
	}
	raw, ok := claims[name]
	if !ok {
		return "", fmt.Errorf("missing '%s' claim in token", name)
	}
	s, ok := raw.(string)
	if !ok || s == "" {
		return "", fmt.Errorf("invalid type for '%s' claim: expected non-empty string, got %T", name, raw)
	}
	return s, nil
}

func GetSubjectFromContext(ctx context.Context) (string, error) {
	return stringClaim(ctx, jwtClaimSubject)
}

// GetTeamIDFromContext возвращает команду игрока. У операторов claim обычно отсутствует.
func GetTeamIDFromContext(ctx context.Context) (string, error) {
	return stringClaim(ctx, jwtClaimTeamID)
}

func GetUserRoleFromContext(ctx context.Context) (models.UserRole, error) {
	roleStr, err := stringClaim(ctx, jwtClaimRole)
	if err != nil {
		return "", err
	}
	role := models.UserRole(roleStr)
	if !role.IsValid() {
		return "", fmt.Errorf("invalid role value in claim: %q", roleStr)
	}
	return role, nil
}
