package domain

import "errors"

var (
	// ErrYearUnavailable marks a (office, year) whose archive could not be
	// retrieved or extracted. Callers record the year as missing.
	ErrYearUnavailable = errors.New("year unavailable")

	// ErrUnknownRegion is reported when a region code has no offices.
	ErrUnknownRegion = errors.New("unknown region")

	// ErrInvalidRegion is returned for region codes that are not plain
	// alphanumerics.
	ErrInvalidRegion = errors.New("invalid region code")

	// ErrInvalidVocabulary is returned by Vocabulary.Validate.
	ErrInvalidVocabulary = errors.New("invalid vocabulary")
)
