package auth

import (
	"context"
	"fmt"

	"github.com/golang-jwt/jwt/v5"
	"github.com/railswap/railswap/internal/models"
)

// Actor identifies who is performing an operation and in which role. It
// replaces the old session role flag: every operation receives an explicit
// actor instead of reading ambient state.
type Actor struct {
	ID   int64
	Role models.SenderRole
}

// Resolver verifies actor tokens issued by the authentication collaborator.
// This service only verifies; it never issues credentials.
type Resolver struct {
	secret []byte
}

func NewResolver(secret string) *Resolver {
	return &Resolver{secret: []byte(secret)}
}

func (r *Resolver) Resolve(tokenStr string) (Actor, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Method.Alg())
		}
		return r.secret, nil
	})
	if err != nil || !token.Valid {
		return Actor{}, fmt.Errorf("invalid actor token")
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Actor{}, fmt.Errorf("invalid token claims")
	}

	actorID, ok := claims["actor_id"].(float64)
	if !ok {
		return Actor{}, fmt.Errorf("invalid actor_id in token")
	}
	role, ok := claims["role"].(string)
	if !ok {
		return Actor{}, fmt.Errorf("invalid role in token")
	}
	switch models.SenderRole(role) {
	case models.RoleBuyer, models.RoleSeller:
	default:
		return Actor{}, fmt.Errorf("unknown role %q in token", role)
	}

	return Actor{ID: int64(actorID), Role: models.SenderRole(role)}, nil
}

type actorKey struct{}

func WithActor(ctx context.Context, a Actor) context.Context {
	return context.WithValue(ctx, actorKey{}, a)
}

// ActorFrom returns the request actor, defaulting to an anonymous buyer when
// no token was presented.
func ActorFrom(ctx context.Context) Actor {
	if a, ok := ctx.Value(actorKey{}).(Actor); ok {
		return a
	}
	return Actor{Role: models.RoleBuyer}
}
