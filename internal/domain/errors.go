package domain

import (
	"fmt"
	"strings"
)

// DomainError represents a domain-specific error
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new DomainError
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     nil,
	}
}

// NewDomainErrorWithCause creates a new DomainError with an underlying cause
func NewDomainErrorWithCause(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Common domain error codes
const (
	ErrCodeValidation       = "VALIDATION_ERROR"
	ErrCodeNotFound         = "NOT_FOUND"
	ErrCodeUnauthorized     = "UNAUTHORIZED"
	ErrCodeInternalError    = "INTERNAL_ERROR"
	ErrCodeInvalidOperation = "INVALID_OPERATION"
	ErrCodeConfig           = "CONFIG_ERROR"
	ErrCodeEmptyCorpus      = "EMPTY_CORPUS"
	ErrCodeIndexBuild       = "INDEX_BUILD_ERROR"
	ErrCodeAmbiguous        = "AMBIGUOUS"
	ErrCodeUnavailable      = "UNAVAILABLE"
)

// Configuration errors. These are raised before any index write.
var (
	ErrUnknownEmbeddingProvider = NewDomainError(ErrCodeConfig, "unknown embedding provider")
	ErrMissingOpenAIKey         = NewDomainError(ErrCodeConfig, "OPENAI_API_KEY is required when embedding provider is 'openai'")
	ErrMissingGeminiKey         = NewDomainError(ErrCodeConfig, "GEMINI_API_KEY is required when embedding provider is 'gemini'")
	ErrUnknownSkillSource       = NewDomainError(ErrCodeConfig, "unknown skills source")
	ErrMissingS3Config          = NewDomainError(ErrCodeConfig, "S3 endpoint, credentials and bucket are required for the s3 source")
	ErrInvalidThreshold         = NewDomainError(ErrCodeConfig, "search threshold must be within [0, 1]")
)

// Validation errors
var (
	ErrMalformedSkill   = NewDomainError(ErrCodeValidation, "malformed skill document")
	ErrMissingSkillName = NewDomainError(ErrCodeValidation, "skill name is required")
	ErrUnsupportedField = NewDomainError(ErrCodeValidation, "unsupported predicate field")
	ErrDuplicateSkillID = NewDomainError(ErrCodeValidation, "duplicate skill id")
	ErrVectorDimensions = NewDomainError(ErrCodeValidation, "embedding dimensions differ between records")
)

// Not found errors
var (
	ErrSkillNotFound      = NewDomainError(ErrCodeNotFound, "skill not found")
	ErrIndexStateNotFound = NewDomainError(ErrCodeNotFound, "index state not found")
	ErrFileNotFound       = NewDomainError(ErrCodeNotFound, "file not found")
)

// Index lifecycle errors
var (
	ErrEmptyCorpus   = NewDomainError(ErrCodeEmptyCorpus, "no skills found; keeping previous index")
	ErrIndexNotBuilt = NewDomainError(ErrCodeUnavailable, "index has not been built")
	ErrBaseStoreFail = NewDomainError(ErrCodeIndexBuild, "failed to build base record store")
	ErrEmbedFailed   = NewDomainError(ErrCodeIndexBuild, "failed to embed skill")
)

// Query tier errors. The search engine treats these as degradation signals.
var (
	ErrVectorSearchUnavailable = NewDomainError(ErrCodeUnavailable, "vector search unavailable")
	ErrTextSearchUnavailable   = NewDomainError(ErrCodeUnavailable, "full-text search unavailable")
)

// File access errors
var (
	ErrPathTraversal = NewDomainError(ErrCodeInvalidOperation, "path escapes skill directory")
	ErrFileTooLarge  = NewDomainError(ErrCodeInvalidOperation, "file too large")
	ErrFileNotText   = NewDomainError(ErrCodeInvalidOperation, "file is not UTF-8 text")
)

// Authorization errors
var (
	ErrInvalidAPIKey = NewDomainError(ErrCodeUnauthorized, "invalid api key")
)

var ErrAmbiguousSkill = NewDomainError(ErrCodeAmbiguous, "skill name is ambiguous")

// AmbiguousSkillError is returned when a bare skill name matches more than one namespaced id.
type AmbiguousSkillError struct {
	ID         string
	Candidates []string
}

func (e *AmbiguousSkillError) Error() string {
	return fmt.Sprintf("skill %q is ambiguous, candidates: %s", e.ID, strings.Join(e.Candidates, ", "))
}

func (e *AmbiguousSkillError) Unwrap() error {
	return ErrAmbiguousSkill
}
