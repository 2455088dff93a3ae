package repository

import (
	"testing"

	"github.com/cloo-solutions/skilldex/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPredicateSQL(t *testing.T) {
	t.Run("all", func(t *testing.T) {
		var args queryArgs
		sql, err := predicateSQL(domain.All(), &args)

		require.NoError(t, err)
		assert.Equal(t, "TRUE", sql)
		assert.Empty(t, args)
	})

	t.Run("any of binds values", func(t *testing.T) {
		args := queryArgs{"first"}
		sql, err := predicateSQL(domain.AnyOf(domain.FieldCategory, "office", "x'); DROP TABLE t; --"), &args)

		require.NoError(t, err)
		assert.Equal(t, "category = ANY($2)", sql)
		assert.Equal(t, []string{"office", "x'); DROP TABLE t; --"}, args[1])
	})

	t.Run("empty any of matches nothing", func(t *testing.T) {
		var args queryArgs
		sql, err := predicateSQL(domain.AnyOf(domain.FieldID), &args)

		require.NoError(t, err)
		assert.Equal(t, "FALSE", sql)
	})

	t.Run("unknown field", func(t *testing.T) {
		var args queryArgs
		_, err := predicateSQL(domain.AnyOf(domain.Field("instructions"), "x"), &args)

		assert.ErrorIs(t, err, domain.ErrUnsupportedField)
	})
}

func TestBuildTSQuery(t *testing.T) {
	tests := []struct {
		query string
		want  string
	}{
		{query: "pdf", want: "pdf:*"},
		{query: "Extract PDF tables", want: "extract:* | pdf:* | tables:*"},
		{query: "pdf & !xlsx | (docs):*", want: "pdf:* | xlsx:* | docs:*"},
		{query: "pdf pdf PDF", want: "pdf:*"},
		{query: "データ 分析", want: "データ:* | 分析:*"},
		{query: "  ++ -- ", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.want, buildTSQuery(tt.query))
		})
	}
}
