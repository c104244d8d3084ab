package sink

import (
	"context"

	"systemdstat/internal/storage"
)

// Store appends every sample to a storage backend.
type Store struct {
	st storage.Store
}

func NewStore(st storage.Store) *Store { return &Store{st: st} }

func (s *Store) Dispatch(ctx context.Context, smp Sample) error {
	if s == nil || s.st == nil {
		return storage.ErrDisabled
	}
	return s.st.AppendSample(ctx, storage.Record{
		At:       smp.Time,
		Plugin:   smp.Plugin,
		Instance: smp.PluginInstance,
		Type:     smp.Type,
		TypeInst: smp.TypeInstance,
		Value:    smp.Value,
	})
}
