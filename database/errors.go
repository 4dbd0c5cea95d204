package database

import "errors"

var (
	ErrUnknownStat       = errors.New("unknown statistic")
	ErrJobDateMismatch   = errors.New("record job date does not match partition job date")
	ErrMalformedJobDate  = errors.New("record job date is not in dd/mm/yyyy format")
	ErrSnapshotFinalized = errors.New("snapshot transaction already finalized")
)
