package types

import "errors"

// Error taxonomy for an update run.
//
// Run-level errors (ErrSync, ErrExtraction when walking fails, ErrPush) abort a run. Every other
// error is isolated to the file or candidate it was raised for.
var (
	// ErrConfig indicates missing or invalid configuration; fatal at startup.
	ErrConfig = errors.New("invalid configuration")
	// ErrSync indicates the working copy could not be cloned, fetched or reset.
	ErrSync = errors.New("failed to synchronize repository")
	// ErrParse indicates a manifest file could not be parsed as YAML mappings.
	ErrParse = errors.New("failed to parse manifest")
	// ErrExtraction indicates a required field was missing from an application declaration.
	ErrExtraction = errors.New("failed to extract candidate")
	// ErrRegistry indicates the registry tag list could not be retrieved.
	ErrRegistry = errors.New("failed to query registry")
	// ErrNoMatchingTag indicates no registry tag matched the allow-tags filter.
	ErrNoMatchingTag = errors.New("no tag matches the allow-tags filter")
	// ErrInvalidTagFilter indicates the allow-tags filter is not a valid regular expression.
	ErrInvalidTagFilter = errors.New("invalid allow-tags filter")
	// ErrPatch indicates an override file could not be read, parsed or written.
	ErrPatch = errors.New("failed to patch override file")
	// ErrPush indicates staging, committing or pushing the working copy failed.
	ErrPush = errors.New("failed to commit and push changes")
)
