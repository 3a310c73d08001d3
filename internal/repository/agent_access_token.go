package repository

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"collections-ledger/internal/domain"
)

type AgentAccessTokenRepository struct {
	db *sql.DB
}

func NewAgentAccessTokenRepository(db *sql.DB) *AgentAccessTokenRepository {
	return &AgentAccessTokenRepository{db: db}
}

// FindTokenByPlainToken resolves a bearer token of the form "<id>|<secret>"
// (or a bare secret) against its stored sha256 hash.
func (r *AgentAccessTokenRepository) FindTokenByPlainToken(ctx context.Context, plainToken string) (*domain.AgentAccessToken, error) {
	plainToken = strings.TrimSpace(plainToken)
	if plainToken == "" {
		return nil, errors.New("empty token")
	}

	var (
		tokenID   *int64
		tokenPart = plainToken
	)
	if idx := strings.Index(plainToken, "|"); idx > 0 {
		if id, err := strconv.ParseInt(plainToken[:idx], 10, 64); err == nil {
			tokenID = &id
			tokenPart = plainToken[idx+1:]
		}
	}

	sum := sha256.Sum256([]byte(tokenPart))
	hashStr := fmt.Sprintf("%x", sum)

	var tok domain.AgentAccessToken

	if tokenID != nil {
		query := `
			SELECT id, token_hash, agent_id, abilities, expires_at
			FROM agent_access_tokens
			WHERE id = $1
			  AND (expires_at IS NULL OR expires_at > $2)
		`

		err := r.db.QueryRowContext(ctx, query, *tokenID, time.Now()).Scan(
			&tok.ID,
			&tok.TokenHash,
			&tok.AgentID,
			&tok.Abilities,
			&tok.ExpiresAt,
		)
		if err == nil && tok.TokenHash == hashStr {
			return &tok, nil
		}
	}

	query := `
		SELECT id, token_hash, agent_id, abilities, expires_at
		FROM agent_access_tokens
		WHERE token_hash = $1
		  AND (expires_at IS NULL OR expires_at > $2)
		ORDER BY created_at DESC
		LIMIT 1
	`

	err := r.db.QueryRowContext(ctx, query, hashStr, time.Now()).Scan(
		&tok.ID,
		&tok.TokenHash,
		&tok.AgentID,
		&tok.Abilities,
		&tok.ExpiresAt,
	)
	if err != nil {
		return nil, errors.New("token not found")
	}

	return &tok, nil
}
