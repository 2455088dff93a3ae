package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cloo-solutions/skilldex/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/sirupsen/logrus"
)

const (
	generationTablePrefix = "skill_gen_"
	retainedGenerations   = 1
	undefinedTableCode    = "42P01"
)

const skillColumns = `id, name, description, category, tags, tags_text, always_apply, instructions, path, metadata, lines`

// SkillIndexRepository stores each index generation in its own table and swaps
// the active generation atomically. Readers always see exactly one complete
// generation.
type SkillIndexRepository struct {
	pool       *pgxpool.Pool
	tx         *TxRunner
	corpusRoot string
	active     atomic.Pointer[domain.Generation]
	buildMu    sync.Mutex
	now        func() time.Time
}

func NewSkillIndexRepository(pool *pgxpool.Pool, corpusRoot string) *SkillIndexRepository {
	return &SkillIndexRepository{
		pool:       pool,
		tx:         NewTxRunner(pool),
		corpusRoot: corpusRoot,
		now:        time.Now,
	}
}

// Rebuild writes records into a fresh generation and makes it active.
// On any failure before the swap the previous generation keeps serving.
func (r *SkillIndexRepository) Rebuild(ctx context.Context, records []*domain.SkillRecord) (*domain.BuildReport, error) {
	if len(records) == 0 {
		return nil, domain.ErrEmptyCorpus
	}

	r.buildMu.Lock()
	defer r.buildMu.Unlock()

	dims, err := vectorDimensions(records)
	if err != nil {
		return nil, err
	}

	id := uuid.New()
	gen := &domain.Generation{
		ID:          id.String(),
		CorpusRoot:  r.corpusRoot,
		Table:       generationTablePrefix + strings.ReplaceAll(id.String(), "-", ""),
		RecordCount: len(records),
		Dimensions:  dims,
		HasVector:   dims > 0,
		BuiltAt:     r.now().UTC(),
	}
	report := &domain.BuildReport{Generation: gen}

	if err := r.createBase(ctx, gen, records); err != nil {
		r.dropTable(ctx, gen.Table)
		return nil, fmt.Errorf("%w: %w", domain.ErrBaseStoreFail, err)
	}

	gen.HasText = r.secondary(ctx, report, "full-text index", textIndexDDL(gen.Table)...)
	if gen.HasVector {
		// Exact scans still work without the ANN index, so HasVector stays true.
		r.secondary(ctx, report, "vector index", vectorIndexDDL(gen.Table)...)
	}
	gen.HasScalar = r.secondary(ctx, report, "scalar index", scalarIndexDDL(gen.Table)...)

	if err := r.swap(ctx, gen); err != nil {
		r.dropTable(ctx, gen.Table)
		return nil, fmt.Errorf("failed to activate generation: %w", err)
	}
	r.active.Store(gen)

	r.retire(ctx)

	return report, nil
}

// Active returns the generation readers currently see. The catalog is consulted
// on every call so a swap made by another process is picked up by the next read.
func (r *SkillIndexRepository) Active(ctx context.Context) (*domain.Generation, error) {
	return r.reload(ctx)
}

func (r *SkillIndexRepository) LookupByID(ctx context.Context, id string) (*domain.SkillRecord, error) {
	var record *domain.SkillRecord
	err := r.read(ctx, func(gen *domain.Generation) error {
		row := r.pool.QueryRow(ctx,
			`SELECT `+skillColumns+` FROM `+quote(gen.Table)+` WHERE id = $1`,
			id,
		)
		rec, err := scanSkill(row)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return domain.ErrSkillNotFound
			}
			return err
		}
		record = rec
		return nil
	})
	return record, err
}

func (r *SkillIndexRepository) LookupByName(ctx context.Context, name string, limit int) ([]*domain.SkillRecord, error) {
	return r.list(ctx, "name = $1", queryArgs{name}, limit)
}

// ListAll returns every record ordered by id. A limit <= 0 means no limit.
func (r *SkillIndexRepository) ListAll(ctx context.Context, limit int) ([]*domain.SkillRecord, error) {
	return r.list(ctx, "TRUE", nil, limit)
}

func (r *SkillIndexRepository) ListWhere(ctx context.Context, pred domain.Predicate, limit int) ([]*domain.SkillRecord, error) {
	var args queryArgs
	where, err := predicateSQL(pred, &args)
	if err != nil {
		return nil, err
	}
	return r.list(ctx, where, args, limit)
}

func (r *SkillIndexRepository) ListAlwaysApply(ctx context.Context, pred domain.Predicate, limit int) ([]*domain.SkillRecord, error) {
	var args queryArgs
	where, err := predicateSQL(pred, &args)
	if err != nil {
		return nil, err
	}
	return r.list(ctx, "always_apply AND "+where, args, limit)
}

// Scan is the substring tier's candidate source.
func (r *SkillIndexRepository) Scan(ctx context.Context, pred domain.Predicate, limit int) ([]*domain.SkillRecord, error) {
	return r.ListWhere(ctx, pred, limit)
}

// SearchVector ranks records by cosine similarity to vec.
func (r *SkillIndexRepository) SearchVector(ctx context.Context, vec []float32, pred domain.Predicate, limit int) ([]*domain.SearchHit, error) {
	var hits []*domain.SearchHit
	err := r.read(ctx, func(gen *domain.Generation) error {
		if !gen.HasVector {
			return domain.ErrVectorSearchUnavailable
		}
		if len(vec) != gen.Dimensions {
			return fmt.Errorf("%w: query has %d dimensions, index has %d", domain.ErrVectorSearchUnavailable, len(vec), gen.Dimensions)
		}

		args := queryArgs{pgvector.NewVector(vec)}
		where, err := predicateSQL(pred, &args)
		if err != nil {
			return err
		}

		query := `SELECT ` + skillColumns + `, 1 - (embedding <=> $1) AS score
			FROM ` + quote(gen.Table) + `
			WHERE embedding IS NOT NULL AND ` + where + `
			ORDER BY embedding <=> $1, id` + limitClause(&args, limit)

		hits, err = r.queryHits(ctx, query, args)
		return err
	})
	return hits, err
}

// SearchText ranks records by full-text relevance over name, description, tags and category.
func (r *SkillIndexRepository) SearchText(ctx context.Context, query string, pred domain.Predicate, limit int) ([]*domain.SearchHit, error) {
	tsquery := buildTSQuery(query)
	if tsquery == "" {
		return nil, fmt.Errorf("%w: query has no searchable terms", domain.ErrTextSearchUnavailable)
	}

	var hits []*domain.SearchHit
	err := r.read(ctx, func(gen *domain.Generation) error {
		if !gen.HasText {
			return domain.ErrTextSearchUnavailable
		}

		args := queryArgs{tsquery}
		where, err := predicateSQL(pred, &args)
		if err != nil {
			return err
		}

		sql := `SELECT ` + skillColumns + `, ts_rank(search_tsv, q) AS score
			FROM ` + quote(gen.Table) + `, to_tsquery('simple', $1) q
			WHERE search_tsv @@ q AND ` + where + `
			ORDER BY score DESC, id` + limitClause(&args, limit)

		hits, err = r.queryHits(ctx, sql, args)
		return err
	})
	return hits, err
}

func (r *SkillIndexRepository) list(ctx context.Context, where string, args queryArgs, limit int) ([]*domain.SkillRecord, error) {
	var records []*domain.SkillRecord
	err := r.read(ctx, func(gen *domain.Generation) error {
		a := append(queryArgs(nil), args...)
		query := `SELECT ` + skillColumns + ` FROM ` + quote(gen.Table) +
			` WHERE ` + where + ` ORDER BY id` + limitClause(&a, limit)

		rows, err := r.pool.Query(ctx, query, a...)
		if err != nil {
			return err
		}
		defer rows.Close()

		records = make([]*domain.SkillRecord, 0)
		for rows.Next() {
			rec, err := scanSkill(rows)
			if err != nil {
				return err
			}
			records = append(records, rec)
		}
		return rows.Err()
	})
	return records, err
}

func (r *SkillIndexRepository) queryHits(ctx context.Context, query string, args queryArgs) ([]*domain.SearchHit, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	hits := make([]*domain.SearchHit, 0)
	for rows.Next() {
		var hit domain.SearchHit
		rec := &domain.SkillRecord{}
		var score float64
		if err := rows.Scan(append(skillDest(rec), &score)...); err != nil {
			return nil, err
		}
		hit.Record = rec
		hit.Score = score
		hits = append(hits, &hit)
	}
	return hits, rows.Err()
}

// read runs fn against the active generation. If another process retired that
// generation's table between the catalog lookup and the query, it retries once.
func (r *SkillIndexRepository) read(ctx context.Context, fn func(gen *domain.Generation) error) error {
	gen, err := r.Active(ctx)
	if err != nil {
		return err
	}

	err = fn(gen)
	if !isUndefinedTable(err) {
		return err
	}

	r.active.CompareAndSwap(gen, nil)
	gen, err = r.reload(ctx)
	if err != nil {
		return err
	}
	return fn(gen)
}

func (r *SkillIndexRepository) reload(ctx context.Context) (*domain.Generation, error) {
	var gen domain.Generation
	err := r.pool.QueryRow(ctx,
		`SELECT id::text, corpus_root, table_name, record_count, dimensions, has_vector, has_text, has_scalar, built_at
		 FROM skill_index_generations WHERE corpus_root = $1 AND active`,
		r.corpusRoot,
	).Scan(&gen.ID, &gen.CorpusRoot, &gen.Table, &gen.RecordCount, &gen.Dimensions, &gen.HasVector, &gen.HasText, &gen.HasScalar, &gen.BuiltAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			r.active.Store(nil)
			return nil, domain.ErrIndexNotBuilt
		}
		return nil, err
	}

	if cached := r.active.Load(); cached != nil && cached.ID == gen.ID {
		return cached, nil
	}
	r.active.Store(&gen)
	return &gen, nil
}

func (r *SkillIndexRepository) createBase(ctx context.Context, gen *domain.Generation, records []*domain.SkillRecord) error {
	return r.tx.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, baseTableDDL(gen.Table, gen.Dimensions)); err != nil {
			return err
		}

		insert := `INSERT INTO ` + quote(gen.Table) + ` (` + skillColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
		if gen.HasVector {
			insert = `INSERT INTO ` + quote(gen.Table) + ` (` + skillColumns + `, embedding) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
		}

		batch := &pgx.Batch{}
		for _, rec := range records {
			args := []any{
				rec.ID, rec.Name, rec.Description, rec.Category, nonNilTags(rec.Tags), rec.TagsText,
				rec.AlwaysApply, rec.Instructions, rec.Path, nullableJSON(rec.Metadata), rec.Lines,
			}
			if gen.HasVector {
				args = append(args, nullableVector(rec.Vector))
			}
			batch.Queue(insert, args...)
		}

		results := tx.SendBatch(ctx, batch)
		for range records {
			if _, err := results.Exec(); err != nil {
				_ = results.Close()
				return err
			}
		}
		return results.Close()
	})
}

// secondary runs optional DDL. Failures become report warnings and leave the
// generation usable without that capability.
func (r *SkillIndexRepository) secondary(ctx context.Context, report *domain.BuildReport, what string, statements ...string) bool {
	for _, stmt := range statements {
		if _, err := r.pool.Exec(ctx, stmt); err != nil {
			warning := fmt.Sprintf("%s unavailable: %v", what, err)
			report.Warnings = append(report.Warnings, warning)
			logrus.WithFields(logrus.Fields{
				"table": report.Generation.Table,
				"error": err,
			}).Warnf("failed to build %s", what)
			return false
		}
	}
	return true
}

func (r *SkillIndexRepository) swap(ctx context.Context, gen *domain.Generation) error {
	return r.tx.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock(hashtext($1))`, gen.CorpusRoot); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx,
			`UPDATE skill_index_generations SET active = FALSE WHERE corpus_root = $1 AND active`,
			gen.CorpusRoot,
		); err != nil {
			return err
		}
		_, err := tx.Exec(ctx,
			`INSERT INTO skill_index_generations (id, corpus_root, table_name, record_count, dimensions, has_vector, has_text, has_scalar, active, built_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, TRUE, $9)`,
			gen.ID, gen.CorpusRoot, gen.Table, gen.RecordCount, gen.Dimensions, gen.HasVector, gen.HasText, gen.HasScalar, gen.BuiltAt,
		)
		return err
	})
}

// retire drops inactive generations beyond the retained ones.
func (r *SkillIndexRepository) retire(ctx context.Context) {
	rows, err := r.pool.Query(ctx,
		`SELECT id::text, table_name FROM skill_index_generations
		 WHERE corpus_root = $1 AND NOT active
		 ORDER BY built_at DESC
		 OFFSET $2`,
		r.corpusRoot, retainedGenerations,
	)
	if err != nil {
		logrus.WithError(err).Warn("failed to list retired generations")
		return
	}

	type retired struct{ id, table string }
	var stale []retired
	for rows.Next() {
		var g retired
		if err := rows.Scan(&g.id, &g.table); err != nil {
			rows.Close()
			logrus.WithError(err).Warn("failed to scan retired generation")
			return
		}
		stale = append(stale, g)
	}
	rows.Close()

	for _, g := range stale {
		if !r.dropTable(ctx, g.table) {
			continue
		}
		if _, err := r.pool.Exec(ctx, `DELETE FROM skill_index_generations WHERE id = $1`, g.id); err != nil {
			logrus.WithError(err).WithField("generation", g.id).Warn("failed to delete generation row")
		}
	}
}

func (r *SkillIndexRepository) dropTable(ctx context.Context, table string) bool {
	if _, err := r.pool.Exec(ctx, `DROP TABLE IF EXISTS `+quote(table)); err != nil {
		logrus.WithError(err).WithField("table", table).Warn("failed to drop generation table")
		return false
	}
	return true
}

func baseTableDDL(table string, dims int) string {
	embedding := ""
	if dims > 0 {
		embedding = fmt.Sprintf(",\n\t\tembedding vector(%d)", dims)
	}
	return `CREATE TABLE ` + quote(table) + ` (
		id           TEXT PRIMARY KEY,
		name         TEXT NOT NULL,
		description  TEXT NOT NULL DEFAULT '',
		category     TEXT NOT NULL DEFAULT '',
		tags         TEXT[] NOT NULL DEFAULT '{}',
		tags_text    TEXT NOT NULL DEFAULT '',
		always_apply BOOLEAN NOT NULL DEFAULT FALSE,
		instructions TEXT NOT NULL DEFAULT '',
		path         TEXT NOT NULL,
		metadata     JSONB,
		lines        INTEGER NOT NULL DEFAULT 0` + embedding + `
	)`
}

func textIndexDDL(table string) []string {
	return []string{
		`ALTER TABLE ` + quote(table) + ` ADD COLUMN search_tsv tsvector GENERATED ALWAYS AS (
			setweight(to_tsvector('simple', name), 'A') ||
			setweight(to_tsvector('simple', description), 'B') ||
			setweight(to_tsvector('simple', tags_text), 'C') ||
			setweight(to_tsvector('simple', category), 'C')
		) STORED`,
		`CREATE INDEX ` + quote(table+"_tsv_idx") + ` ON ` + quote(table) + ` USING GIN (search_tsv)`,
	}
}

func vectorIndexDDL(table string) []string {
	return []string{
		`CREATE INDEX ` + quote(table+"_embedding_idx") + ` ON ` + quote(table) + ` USING hnsw (embedding vector_cosine_ops)`,
	}
}

func scalarIndexDDL(table string) []string {
	return []string{
		`CREATE INDEX ` + quote(table+"_category_idx") + ` ON ` + quote(table) + ` (category)`,
		`CREATE INDEX ` + quote(table+"_tags_idx") + ` ON ` + quote(table) + ` USING GIN (tags)`,
	}
}

// vectorDimensions returns the shared vector length, or 0 when no record carries one.
func vectorDimensions(records []*domain.SkillRecord) (int, error) {
	dims := 0
	for _, rec := range records {
		if len(rec.Vector) == 0 {
			continue
		}
		if dims == 0 {
			dims = len(rec.Vector)
			continue
		}
		if len(rec.Vector) != dims {
			return 0, fmt.Errorf("%w: %s has %d, expected %d", domain.ErrVectorDimensions, rec.ID, len(rec.Vector), dims)
		}
	}
	return dims, nil
}

func limitClause(args *queryArgs, limit int) string {
	if limit <= 0 {
		return ""
	}
	return " LIMIT " + args.add(limit)
}

func skillDest(rec *domain.SkillRecord) []any {
	return []any{
		&rec.ID, &rec.Name, &rec.Description, &rec.Category, &rec.Tags, &rec.TagsText,
		&rec.AlwaysApply, &rec.Instructions, &rec.Path, &rec.Metadata, &rec.Lines,
	}
}

func scanSkill(row pgx.Row) (*domain.SkillRecord, error) {
	rec := &domain.SkillRecord{}
	if err := row.Scan(skillDest(rec)...); err != nil {
		return nil, err
	}
	return rec, nil
}

func quote(ident string) string {
	return pgx.Identifier{ident}.Sanitize()
}

func isUndefinedTable(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == undefinedTableCode
}

func nonNilTags(tags []string) []string {
	if tags == nil {
		return []string{}
	}
	return tags
}

func nullableJSON(raw []byte) any {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return string(raw)
}

func nullableVector(vec []float32) any {
	if len(vec) == 0 {
		return nil
	}
	return pgvector.NewVector(vec)
}
