package fstore

import (
	"fmt"
	"reflect"

	"github.com/slowstore/slowstore/lib/changelog"
	"github.com/slowstore/slowstore/lib/model"
	"github.com/slowstore/slowstore/lib/store"
)

// --------------------------------------------------------------------------
// Tracked Record
// --------------------------------------------------------------------------

// recordImpl is the tracked handle for one entity of a file store. It owns
// the entity, its change log and its dirty state; persistence goes through
// the owning store.
type recordImpl[E model.IModel] struct {
	key     string
	entity  E
	log     *changelog.ChangeLog
	dirty   bool
	removed bool
	store   *storeImpl[E]
}

// --------------------------------------------------------------------------
// Interface Methods (docu see store.IRecord)
// --------------------------------------------------------------------------

func (r *recordImpl[E]) Key() string {
	return r.key
}

func (r *recordImpl[E]) Entity() E {
	return r.entity
}

func (r *recordImpl[E]) Get(field string) (any, error) {
	value, err := r.entity.GetField(field)
	if err != nil {
		return nil, store.NewError(store.RetCInvalidOperation,
			fmt.Sprintf("read field %q of record %q: %v", field, r.key, err))
	}
	return value, nil
}

func (r *recordImpl[E]) Set(field string, value any) error {
	if r.removed {
		return store.NewError(store.RetCRecordRemoved,
			fmt.Sprintf("record %q was deleted from its store", r.key))
	}

	change, changed, err := r.setField(field, value)
	if err != nil || !changed {
		return err
	}

	r.store.notify(store.ChangeEvent{
		Kind:    store.ChangeKindUpdate,
		Key:     r.key,
		Changes: []changelog.Change{change},
	})
	return r.autosave()
}

func (r *recordImpl[E]) Undo() (bool, error) {
	if r.removed {
		return false, store.NewError(store.RetCRecordRemoved,
			fmt.Sprintf("record %q was deleted from its store", r.key))
	}

	change, ok := r.log.Undo()
	if !ok {
		return false, nil
	}

	if err := r.entity.SetField(change.Field, change.OldValue); err != nil {
		// Keep log and entity in step
		r.log.Redo()
		return false, store.NewError(store.RetCInternalError,
			fmt.Sprintf("revert field %q of record %q: %v", change.Field, r.key, err))
	}

	r.dirty = true
	r.store.notify(store.ChangeEvent{
		Kind:    store.ChangeKindUndo,
		Key:     r.key,
		Changes: []changelog.Change{change},
	})
	return true, r.autosave()
}

func (r *recordImpl[E]) Redo() (bool, error) {
	if r.removed {
		return false, store.NewError(store.RetCRecordRemoved,
			fmt.Sprintf("record %q was deleted from its store", r.key))
	}

	change, ok := r.log.Redo()
	if !ok {
		return false, nil
	}

	if err := r.entity.SetField(change.Field, change.NewValue); err != nil {
		r.log.Undo()
		return false, store.NewError(store.RetCInternalError,
			fmt.Sprintf("re-apply field %q of record %q: %v", change.Field, r.key, err))
	}

	r.dirty = true
	r.store.notify(store.ChangeEvent{
		Kind:    store.ChangeKindRedo,
		Key:     r.key,
		Changes: []changelog.Change{change},
	})
	return true, r.autosave()
}

func (r *recordImpl[E]) Commit() error {
	if r.removed {
		return store.NewError(store.RetCRecordRemoved,
			fmt.Sprintf("record %q was deleted from its store", r.key))
	}
	return r.store.persist(r)
}

func (r *recordImpl[E]) IsDirty() bool {
	return r.dirty
}

func (r *recordImpl[E]) History() []changelog.Change {
	return r.log.Entries()
}

func (r *recordImpl[E]) Removed() bool {
	return r.removed
}

// --------------------------------------------------------------------------
// Internal Helpers
// --------------------------------------------------------------------------

// setField applies one field mutation without saving or notifying. The store
// uses it to batch merge upserts into a single event and a single write.
// The returned bool reports whether the field actually changed.
func (r *recordImpl[E]) setField(field string, value any) (changelog.Change, bool, error) {
	prev, err := r.entity.GetField(field)
	if err != nil {
		return changelog.Change{}, false, store.NewError(store.RetCInvalidOperation,
			fmt.Sprintf("read field %q of record %q: %v", field, r.key, err))
	}

	// Equal values record nothing
	if reflect.DeepEqual(prev, value) {
		return changelog.Change{}, false, nil
	}

	if err := r.entity.SetField(field, value); err != nil {
		return changelog.Change{}, false, store.NewError(store.RetCInvalidOperation,
			fmt.Sprintf("set field %q of record %q: %v", field, r.key, err))
	}

	change := r.log.Append(field, prev, value)
	r.dirty = true
	return change, true, nil
}

// autosave persists the record if the store is configured to save on change.
// On failure the record stays dirty and the error carries RetCPersistence.
func (r *recordImpl[E]) autosave() error {
	if !r.store.opts.SaveOnChange {
		return nil
	}
	return r.store.persist(r)
}
