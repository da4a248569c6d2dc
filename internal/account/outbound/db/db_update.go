package db

import (
	"context"
	"errors"

	"github.com/shandysiswandi/gotp/internal/account/entity"
	"github.com/shandysiswandi/gotp/internal/pkg/goerror"
)

const queryUpdateAccount = `
UPDATE otp_accounts
SET secret = $2, recovery_tokens = $3, version = version + 1, updated_at = now()
WHERE identifier = $1 AND version = $4
RETURNING version, updated_at`

const queryAccountExists = `SELECT EXISTS (SELECT 1 FROM otp_accounts WHERE identifier = $1)`

// UpdateAccount writes acc only if the stored version still equals acc.Version.
// On success acc carries the new version and update time.
func (s *DB) UpdateAccount(ctx context.Context, acc *entity.Account) (err error) {
	ctx, span := s.startSpan(ctx, "UpdateAccount")
	defer func() { s.endSpan(span, err) }()

	tokens, err := encodeTokens(acc.RecoveryTokens)
	if err != nil {
		return err
	}

	err = s.conn.QueryRow(ctx, queryUpdateAccount,
		acc.Identifier,
		acc.Secret,
		tokens,
		acc.Version,
	).Scan(&acc.Version, &acc.UpdatedAt)
	err = s.mapError(err)
	if !errors.Is(err, goerror.ErrNotFound) {
		return err
	}

	var exists bool
	if err = s.conn.QueryRow(ctx, queryAccountExists, acc.Identifier).Scan(&exists); err != nil {
		return err
	}
	if exists {
		err = goerror.ErrConflict
		return err
	}

	err = goerror.ErrNotFound
	return err
}
