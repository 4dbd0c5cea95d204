package ingestion

import (
	"errors"
	"fmt"
)

// Domain-specific errors для ingestion domain
var (
	ErrDateFormat  = errors.New("invalid job date")
	ErrSourceQuery = errors.New("source query failed")
	ErrSchema      = errors.New("snapshot schema unavailable")
	ErrCommit      = errors.New("snapshot commit failed")
)

// PartitionError ошибка обработки одной партиции.
// errors.Is срабатывает и для вида ошибки (Kind), и для исходной причины (Err).
type PartitionError struct {
	Partition string
	Kind      error
	Err       error
}

func (e *PartitionError) Error() string {
	return fmt.Sprintf("partition %s: %v: %v", e.Partition, e.Kind, e.Err)
}

func (e *PartitionError) Unwrap() []error {
	return []error{e.Kind, e.Err}
}
