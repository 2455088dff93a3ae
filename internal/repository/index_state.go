package repository

import (
	"context"
	"errors"

	"github.com/cloo-solutions/skilldex/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type IndexStateRepository struct {
	db dbtx
}

func NewIndexStateRepository(pool *pgxpool.Pool) *IndexStateRepository {
	return &IndexStateRepository{db: pool}
}

func (r *IndexStateRepository) Get(ctx context.Context, corpusRoot string) (*domain.IndexState, error) {
	var state domain.IndexState
	var signature string
	err := r.db.QueryRow(ctx,
		`SELECT corpus_root, signature, built_at, reason
		 FROM skill_index_state WHERE corpus_root = $1`,
		corpusRoot,
	).Scan(&state.CorpusRoot, &signature, &state.BuiltAt, &state.Reason)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrIndexStateNotFound
		}
		return nil, err
	}
	state.Signature = domain.Signature(signature)
	return &state, nil
}

func (r *IndexStateRepository) Save(ctx context.Context, state *domain.IndexState) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO skill_index_state (corpus_root, signature, built_at, reason)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (corpus_root) DO UPDATE
		 SET signature = EXCLUDED.signature, built_at = EXCLUDED.built_at, reason = EXCLUDED.reason`,
		state.CorpusRoot, string(state.Signature), state.BuiltAt, state.Reason,
	)
	return err
}
