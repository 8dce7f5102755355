package realtime

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/cambio-network/exchange_layer/internal/domain/account"
	svcerrors "github.com/cambio-network/exchange_layer/internal/errors"
	"github.com/cambio-network/exchange_layer/internal/logging"
)

// AccountGetter is the slice of the persistence service the gatekeeper needs.
type AccountGetter interface {
	GetAccount(ctx context.Context, id string) (account.Account, error)
}

// Claims are the token claims the gatekeeper inspects.
type Claims struct {
	AccountID string `json:"account_id"`
	jwt.RegisteredClaims
}

// Gatekeeper authenticates connecting sockets before any room join occurs.
type Gatekeeper struct {
	secret   []byte
	accounts AccountGetter
	log      *logging.Logger
}

// NewGatekeeper creates a gatekeeper verifying tokens against the
// process-wide secret and resolving accounts through the given store.
func NewGatekeeper(secret string, accounts AccountGetter, log *logging.Logger) *Gatekeeper {
	return &Gatekeeper{secret: []byte(secret), accounts: accounts, log: log}
}

// Authenticate verifies the bearer token and resolves the owning account.
// Any failure is fatal to the connection attempt; no partial state is
// returned.
func (g *Gatekeeper) Authenticate(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, svcerrors.Unauthorized("missing token")
	}

	claims, err := g.verifyToken(token)
	if err != nil {
		return nil, err
	}

	acct, err := g.accounts.GetAccount(ctx, claims.AccountID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, svcerrors.Unauthorized("unknown account")
		}
		return nil, svcerrors.Internal("account lookup failed", err)
	}
	if !acct.Active {
		return nil, svcerrors.Unauthorized("account inactive")
	}

	g.log.WithContext(ctx).WithFields(map[string]interface{}{
		"account_id": acct.ID,
		"role":       acct.Role,
	}).Debug("socket authenticated")

	return &Identity{
		AccountID:   acct.ID,
		DisplayName: acct.DisplayName,
		Role:        acct.Role,
		OfficeID:    acct.OfficeID,
	}, nil
}

func (g *Gatekeeper) verifyToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}
		return g.secret, nil
	})
	if err != nil {
		return nil, svcerrors.InvalidToken(err)
	}
	if !token.Valid {
		return nil, svcerrors.InvalidToken(nil)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.AccountID == "" {
		return nil, svcerrors.InvalidToken(nil).WithDetails("reason", "missing account claim")
	}
	return claims, nil
}
