package repository

import "errors"

// ErrConditionNotMet reports a conditional write whose predicate matched no row.
// Callers re-read state to decide which domain error applies.
var ErrConditionNotMet = errors.New("conditional write matched no rows")
