package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewSignature(t *testing.T) {
	latest := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	stat := CorpusStat{Count: 3, LatestModified: latest}

	t.Run("deterministic", func(t *testing.T) {
		assert.Equal(t, NewSignature(stat, "openai:text-embedding-3-small"), NewSignature(stat, "openai:text-embedding-3-small"))
	})

	t.Run("count change alters signature", func(t *testing.T) {
		other := CorpusStat{Count: 4, LatestModified: latest}
		assert.NotEqual(t, NewSignature(stat, ""), NewSignature(other, ""))
	})

	t.Run("mtime change alters signature", func(t *testing.T) {
		other := CorpusStat{Count: 3, LatestModified: latest.Add(time.Second)}
		assert.NotEqual(t, NewSignature(stat, ""), NewSignature(other, ""))
	})

	t.Run("embedder change alters signature", func(t *testing.T) {
		assert.NotEqual(t, NewSignature(stat, "none"), NewSignature(stat, "gemini:gemini-embedding-001"))
	})

	t.Run("empty embedder is none", func(t *testing.T) {
		assert.Equal(t, NewSignature(stat, "none"), NewSignature(stat, ""))
	})

	t.Run("time zone does not matter", func(t *testing.T) {
		local := CorpusStat{Count: 3, LatestModified: latest.In(time.FixedZone("X", 3600))}
		assert.Equal(t, NewSignature(stat, ""), NewSignature(local, ""))
	})
}

func TestAmbiguousSkillError(t *testing.T) {
	err := &AmbiguousSkillError{ID: "pdf", Candidates: []string{"a/pdf", "b/pdf"}}

	assert.Contains(t, err.Error(), "a/pdf, b/pdf")
	assert.True(t, errors.Is(err, ErrAmbiguousSkill))

	var domainErr *DomainError
	assert.True(t, errors.As(err, &domainErr))
	assert.Equal(t, ErrCodeAmbiguous, domainErr.Code)
}

func TestDomainError_WithCause(t *testing.T) {
	cause := errors.New("boom")
	err := NewDomainErrorWithCause(ErrCodeIndexBuild, "full-text index", cause)

	assert.Equal(t, "[INDEX_BUILD_ERROR] full-text index: boom", err.Error())
	assert.ErrorIs(t, err, cause)
}
