package config

import "errors"

// Validation errors returned by Config.Validate.
var (
	ErrUnknownProvider      = errors.New("unknown generation provider (want openai, ollama or anthropic)")
	ErrInvalidExcerptLength = errors.New("invalid excerpt length: must be non-negative")
	ErrInvalidTimeout       = errors.New("invalid timeout: must be positive")
	ErrInvalidRetry         = errors.New("invalid retry: max_attempts must be at least 1")
	ErrNoIndexFile          = errors.New("output.index_file must not be empty")
)
