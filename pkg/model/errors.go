package model

import "github.com/m-mizutani/goerr/v2"

var (
	// ErrSourceNotFound means the backing record source does not exist. It is
	// fatal to the operation and never retried.
	ErrSourceNotFound = goerr.New("record source not found")

	// ErrParseSkipped marks a single record that could not be decoded. Such
	// records are logged and excluded; the batch continues.
	ErrParseSkipped = goerr.New("record skipped")

	// ErrConfigurationMissing is returned by component factories when a
	// required credential or setting is empty.
	ErrConfigurationMissing = goerr.New("required configuration is missing")

	// ErrPersistenceCorrupt means the knowledge memory document could not be
	// read. Knowledge memory recovers from it by starting over at version 1.
	ErrPersistenceCorrupt = goerr.New("knowledge memory document is corrupt")
)
