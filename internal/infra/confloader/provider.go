package confloader

import (
	"errors"

	"github.com/knadh/koanf/maps"
)

// ErrReadBytesNotSupported is returned by mapProvider.ReadBytes.
var ErrReadBytesNotSupported = errors.New("confloader: map provider has no byte form")

// mapProvider is a koanf.Provider over a map keyed by dotted paths.
type mapProvider map[string]any

func (mapProvider) ReadBytes() ([]byte, error) { return nil, ErrReadBytesNotSupported }

func (m mapProvider) Read() (map[string]any, error) { return maps.Unflatten(m, "."), nil }
