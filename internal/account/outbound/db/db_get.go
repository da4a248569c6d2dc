package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/shandysiswandi/gotp/internal/account/entity"
)

const queryGetAccount = `
SELECT id, identifier, secret, recovery_tokens, version, created_at, updated_at
FROM otp_accounts
WHERE identifier = $1`

func (s *DB) GetAccount(ctx context.Context, identifier string) (_ *entity.Account, err error) {
	ctx, span := s.startSpan(ctx, "GetAccount")
	defer func() { s.endSpan(span, err) }()

	var (
		acc    entity.Account
		tokens []byte
	)
	err = s.conn.QueryRow(ctx, queryGetAccount, identifier).Scan(
		&acc.ID,
		&acc.Identifier,
		&acc.Secret,
		&tokens,
		&acc.Version,
		&acc.CreatedAt,
		&acc.UpdatedAt,
	)
	if err != nil {
		return nil, s.mapError(err)
	}

	if err = json.Unmarshal(tokens, &acc.RecoveryTokens); err != nil {
		return nil, fmt.Errorf("decode recovery tokens: %w", err)
	}

	return &acc, nil
}
