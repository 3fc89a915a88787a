package repounit

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"github.com/SIXwishlist/pulp/pkg/logger"
	"github.com/SIXwishlist/pulp/pkg/storage"
)

// associationIndex is the order-preserving unit id → association mapping
// built from the (possibly deduplicated) association stream. Its key
// sequence, in first-seen insertion order, is the authoritative requested
// unit id set and the default output order.
//
// This is one of the pipeline's two materialization points: it buffers
// association metadata, O(requested unit count), never unit payloads.
//
// Unit ids are assumed unique across all types here. If two types share an
// id value, the later association shadows the earlier — a known latent flaw
// of the system, inherited, not guarded against.
type associationIndex struct {
	ids      []string
	byUnitID map[string]*storage.AssociationRecord
}

// buildAssociationIndex drains the association stream. When duplicates were
// not removed upstream, a later record for an already-seen unit id overwrites
// the mapped record but does not move the id's slot.
func buildAssociationIndex(ctx context.Context, associations storage.Iterator[*storage.AssociationRecord]) (*associationIndex, error) {
	defer associations.Stop()

	index := &associationIndex{
		byUnitID: map[string]*storage.AssociationRecord{},
	}

	for {
		rec, err := associations.Next(ctx)
		if err != nil {
			if errors.Is(err, storage.ErrIteratorDone) {
				return index, nil
			}
			return nil, err
		}

		if _, seen := index.byUnitID[rec.UnitID]; !seen {
			index.ids = append(index.ids, rec.UnitID)
		}
		index.byUnitID[rec.UnitID] = rec
	}
}

// reorderIterator re-emits the unit stream in association order: the order
// given by the index's unit id sequence. Doing so requires materializing the
// (already skip/limited) unit stream once — the pipeline's second buffering
// point. Ids present in the sequence but absent from the buffered stream
// (filtered out, or cut by pagination) are skipped; no records are
// fabricated and a size mismatch is not an error.
type reorderIterator struct {
	ids      []string
	upstream storage.Iterator[storage.Document]
	byID     map[string]storage.Document
	loaded   bool
}

func newReorderIterator(ids []string, upstream storage.Iterator[storage.Document]) storage.Iterator[storage.Document] {
	return &reorderIterator{
		ids:      ids,
		upstream: upstream,
	}
}

func (r *reorderIterator) Next(ctx context.Context) (storage.Document, error) {
	if !r.loaded {
		if err := r.load(ctx); err != nil {
			return nil, err
		}
	}

	for len(r.ids) > 0 {
		id, rest := r.ids[0], r.ids[1:]
		r.ids = rest

		if doc, ok := r.byID[id]; ok {
			return doc, nil
		}
	}

	return nil, storage.ErrIteratorDone
}

func (r *reorderIterator) load(ctx context.Context) error {
	defer r.upstream.Stop()
	r.loaded = true
	r.byID = map[string]storage.Document{}

	for {
		doc, err := r.upstream.Next(ctx)
		if err != nil {
			if errors.Is(err, storage.ErrIteratorDone) {
				return nil
			}
			return err
		}

		if id, ok := doc[storage.FieldID].(string); ok {
			r.byID[id] = doc
		}
	}
}

func (r *reorderIterator) Stop() {
	r.upstream.Stop()
	r.ids = nil
}

// mergeIterator joins each unit record back to its owning association record,
// attaching the unit as the association's Metadata, and yields the combined
// record. A unit whose id is missing from the index is logged as a
// DataConsistencyError and skipped; the stream continues.
type mergeIterator struct {
	index  *associationIndex
	units  storage.Iterator[storage.Document]
	logger logger.Logger
}

func newMergeIterator(index *associationIndex, units storage.Iterator[storage.Document], l logger.Logger) UnitIterator {
	return &mergeIterator{
		index:  index,
		units:  units,
		logger: l,
	}
}

func (m *mergeIterator) Next(ctx context.Context) (*storage.AssociationRecord, error) {
	for {
		doc, err := m.units.Next(ctx)
		if err != nil {
			if errors.Is(err, storage.ErrIteratorDone) {
				return nil, storage.ErrIteratorDone
			}
			return nil, wrapStorageErr(err)
		}

		unit := storage.UnitFromDocument(doc)

		association, ok := m.index.byUnitID[unit.ID]
		if !ok {
			m.logger.Warn("dropping unit record from result stream",
				zap.Error(&DataConsistencyError{UnitID: unit.ID}),
			)
			continue
		}

		association.Metadata = unit
		return association, nil
	}
}

func (m *mergeIterator) Stop() {
	m.units.Stop()
}
