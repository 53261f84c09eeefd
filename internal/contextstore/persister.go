package contextstore

import (
	"context"

	"github.com/cortexrt/runtime/internal/fsstore"
	"github.com/cortexrt/runtime/internal/registry"
)

// FilePersister adapts a fsstore.ContextFileStore plus an optional Sealer
// into a registry.ContextPersister, sealing sensitive categories (spec
// §3.8) before they hit disk and leaving the rest in the clear.
type FilePersister struct {
	store  *fsstore.ContextFileStore
	sealer *Sealer
}

func NewFilePersister(store *fsstore.ContextFileStore, sealer *Sealer) *FilePersister {
	return &FilePersister{store: store, sealer: sealer}
}

func (p *FilePersister) Persist(e registry.ContextEntry) error {
	content := e.Content
	if p.sealer != nil && ShouldSeal(e.Category) {
		sealed, err := p.sealer.Seal(content)
		if err != nil {
			return err
		}
		content = sealed
	}
	return p.store.Store(context.Background(), fsstore.RawEntry{
		EntryId:       e.EntryId,
		Content:       content,
		Category:      e.Category,
		Tags:          e.Tags,
		ReferenceCode: e.ReferenceCode,
		CreatedAt:     e.CreatedAt,
	})
}
