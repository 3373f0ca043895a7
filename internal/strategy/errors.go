package strategy

import "errors"

var (
	ErrInvalidConstraints = errors.New("strategy: invalid constraints")
	ErrUnknownCompound    = errors.New("strategy: unknown compound")
)
