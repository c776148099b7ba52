package core

import (
	"errors"
)

var (
	ErrAssetNotFound = errors.New("asset not found")
	ErrUnknown       = errors.New("unknown")
)
