package db

import (
	"context"
	"encoding/json"

	"github.com/shandysiswandi/gotp/internal/account/entity"
)

const queryCreateAccount = `
INSERT INTO otp_accounts (id, identifier, secret, recovery_tokens, version, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7)`

func (s *DB) CreateAccount(ctx context.Context, acc entity.Account) (err error) {
	ctx, span := s.startSpan(ctx, "CreateAccount")
	defer func() { s.endSpan(span, err) }()

	tokens, err := encodeTokens(acc.RecoveryTokens)
	if err != nil {
		return err
	}

	_, err = s.conn.Exec(ctx, queryCreateAccount,
		acc.ID,
		acc.Identifier,
		acc.Secret,
		tokens,
		acc.Version,
		acc.CreatedAt,
		acc.UpdatedAt,
	)
	err = s.mapError(err)
	return err
}

func encodeTokens(tokens []entity.RecoveryToken) ([]byte, error) {
	if tokens == nil {
		tokens = []entity.RecoveryToken{}
	}
	return json.Marshal(tokens)
}
