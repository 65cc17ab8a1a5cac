package dataprocessing

import "errors"

var (
	// ErrInvalidPeriod is returned when a moving average is requested with a
	// period below one
	ErrInvalidPeriod = errors.New("moving average period must be positive")
	// ErrUnknownOperator is reported by ValidateFilters for operators that do
	// not apply to the column kind
	ErrUnknownOperator = errors.New("unknown filter operator")
	// ErrMissingOperand is reported by ValidateFilters when a comparison has
	// no value to compare against
	ErrMissingOperand = errors.New("filter operand missing")
	// ErrUnknownAggregate is returned for unsupported aggregate functions
	ErrUnknownAggregate = errors.New("unknown aggregate function")
)
