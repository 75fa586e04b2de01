package ocrconfig

import (
	"context"
	"errors"
)

// Candidates lists the keys Resolve tries for key, most specific first.
// A transporter is only considered together with a consignor.
func Candidates(key Key) []Key {
	var out []Key
	if key.Consignor != "" && key.Transporter != "" {
		out = append(out, key)
	}
	if key.Consignor != "" {
		out = append(out, Key{Module: key.Module, Consignor: key.Consignor})
	}
	return append(out, Key{Module: key.Module})
}

// Resolve returns the most specific active configuration for key:
// transporter level, then consignor level, then the module default.
// It returns ErrNotFound when none of them exist.
func Resolve(ctx context.Context, store Finder, key Key) (*Configuration, error) {
	key = NewKey(key.Module, key.Consignor, key.Transporter)
	if err := key.Validate(); err != nil {
		return nil, err
	}

	for _, candidate := range Candidates(key) {
		cfg, err := store.FindActive(ctx, candidate)
		if err == nil {
			return cfg, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, err
		}
	}
	return nil, ErrNotFound
}
