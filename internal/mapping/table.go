package mapping

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/nerrad567/orchestream/internal/infrastructure/logging"
)

// Store persists the complete mapping table.
//
// The table follows save-all semantics: every mutation rewrites the full
// set, so the store never sees partial state.
type Store interface {
	// LoadAll returns every persisted mapping.
	LoadAll(ctx context.Context) ([]Mapping, error)

	// SaveAll replaces the persisted set with the given mappings.
	SaveAll(ctx context.Context, mappings []Mapping) error
}

// Table is the in-memory channel map with write-through persistence.
//
// It maintains two indexes: device id to mapping, and channel to device
// id (covering primary and aux channels). The reverse index is rebuilt
// after every mutation.
//
// Thread Safety: all methods are safe for concurrent use.
type Table struct {
	store  Store
	logger *logging.Logger

	mu        sync.RWMutex
	byDevice  map[string]Mapping
	byChannel map[int]string
	order     []string // device ids in discovery order
}

// NewTable creates a table backed by the given store and loads the
// persisted mappings.
func NewTable(ctx context.Context, store Store, logger *logging.Logger) (*Table, error) {
	t := &Table{
		store:     store,
		logger:    logger.With("component", "mapping"),
		byDevice:  make(map[string]Mapping),
		byChannel: make(map[int]string),
	}

	loaded, err := store.LoadAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrStoreFailed, err)
	}

	for _, m := range loaded {
		t.byDevice[m.DeviceID] = m
		t.order = append(t.order, m.DeviceID)
	}
	t.rebuildChannelIndex()

	t.logger.Info("mapping table loaded", "devices", len(loaded))
	return t, nil
}

// AutoAssign walks entities in discovery order and assigns a channel
// span to each one that is not yet mapped.
//
// Allocation uses a moving cursor starting at startChannel. Spans that
// would collide with an existing mapping are skipped over; entities
// whose span would run past channel 512 are left unmapped with a
// warning. Already-mapped devices keep their channels and type, making
// repeated passes over the same entity set idempotent.
//
// Returns the number of newly assigned devices.
func (t *Table) AutoAssign(ctx context.Context, entities []Entity, startChannel int) (int, error) {
	if startChannel < MinChannel || startChannel > MaxChannel {
		return 0, fmt.Errorf("%w: start channel %d", ErrChannelRange, startChannel)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	assigned := 0
	mutated := false
	cursor := startChannel
	now := time.Now().UTC()

	for _, e := range entities {
		if existing, ok := t.byDevice[e.ID]; ok {
			// Keep channels and type; refresh the friendly name.
			if e.Name != "" && e.Name != existing.Name {
				existing.Name = e.Name
				existing.UpdatedAt = now
				t.byDevice[e.ID] = existing
				mutated = true
			}
			continue
		}

		dtype := Classify(e)
		if dtype == TypeUnknown {
			t.logger.Debug("entity not mappable", "entity", e.ID)
			continue
		}

		span := dtype.ChannelSpan()
		primary, ok := t.findFreeSpan(cursor, span)
		if !ok {
			t.logger.Warn("no channels left for entity",
				"entity", e.ID,
				"type", string(dtype),
				"span", span,
			)
			continue
		}

		m := Mapping{
			DeviceID:    e.ID,
			Name:        e.Name,
			Type:        dtype,
			Channel:     primary,
			AuxChannels: auxSpan(primary, dtype),
			CreatedAt:   now,
			UpdatedAt:   now,
		}
		t.byDevice[e.ID] = m
		t.order = append(t.order, e.ID)
		for _, ch := range m.Channels() {
			t.byChannel[ch] = e.ID
		}

		cursor = primary + span
		assigned++
		mutated = true

		t.logger.Info("channel span assigned",
			"entity", e.ID,
			"type", string(dtype),
			"channel", primary,
			"span", span,
		)
	}

	// Name refreshes persist too, not just new assignments.
	if mutated {
		if err := t.persistLocked(ctx); err != nil {
			return assigned, err
		}
	}

	return assigned, nil
}

// findFreeSpan returns the first primary channel at or after from whose
// full span is unoccupied and within the universe.
func (t *Table) findFreeSpan(from, span int) (int, bool) {
	for primary := from; primary+span-1 <= MaxChannel; primary++ {
		free := true
		for ch := primary; ch < primary+span; ch++ {
			if _, taken := t.byChannel[ch]; taken {
				free = false
				break
			}
		}
		if free {
			return primary, true
		}
	}
	return 0, false
}

// Update moves a device to a new primary channel and/or device type,
// creating the mapping if the device has none yet.
//
// The aux channels are recomputed for the type. The span must lie
// within 1..512 and must not overlap any other device's channels;
// violations are returned as errors, never silently resolved.
func (t *Table) Update(ctx context.Context, deviceID string, channel int, dtype DeviceType) error {
	if !dtype.Valid() || dtype == TypeUnknown {
		return fmt.Errorf("%w: %q", ErrInvalidType, string(dtype))
	}

	span := dtype.ChannelSpan()
	if channel < MinChannel || channel+span-1 > MaxChannel {
		return fmt.Errorf("%w: channel %d span %d", ErrChannelRange, channel, span)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	for ch := channel; ch < channel+span; ch++ {
		if owner, taken := t.byChannel[ch]; taken && owner != deviceID {
			return fmt.Errorf("%w: channel %d owned by %s", ErrChannelConflict, ch, owner)
		}
	}

	now := time.Now().UTC()
	m, ok := t.byDevice[deviceID]
	if !ok {
		m = Mapping{DeviceID: deviceID, CreatedAt: now}
		t.order = append(t.order, deviceID)
	}

	m.Type = dtype
	m.Channel = channel
	m.AuxChannels = auxSpan(channel, dtype)
	m.UpdatedAt = now
	t.byDevice[deviceID] = m
	t.rebuildChannelIndex()

	return t.persistLocked(ctx)
}

// Remove deletes a device's mapping. Removing an unmapped device is a no-op.
func (t *Table) Remove(ctx context.Context, deviceID string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if _, ok := t.byDevice[deviceID]; !ok {
		return nil
	}

	delete(t.byDevice, deviceID)
	for i, id := range t.order {
		if id == deviceID {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	t.rebuildChannelIndex()

	return t.persistLocked(ctx)
}

// ByDevice returns the mapping for a device id.
func (t *Table) ByDevice(deviceID string) (Mapping, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	m, ok := t.byDevice[deviceID]
	return m, ok
}

// ByChannel returns the mapping owning a channel (primary or aux).
func (t *Table) ByChannel(channel int) (Mapping, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	id, ok := t.byChannel[channel]
	if !ok {
		return Mapping{}, false
	}
	return t.byDevice[id], true
}

// All returns every mapping in discovery order.
func (t *Table) All() []Mapping {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Mapping, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.byDevice[id])
	}
	return out
}

// Count returns the number of mapped devices.
func (t *Table) Count() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.byDevice)
}

// rebuildChannelIndex recomputes the channel index from scratch.
// Callers must hold the write lock.
func (t *Table) rebuildChannelIndex() {
	t.byChannel = make(map[int]string, len(t.byChannel))
	for id, m := range t.byDevice {
		for _, ch := range m.Channels() {
			t.byChannel[ch] = id
		}
	}
}

// persistLocked writes the full table through the store.
// Callers must hold the write lock.
func (t *Table) persistLocked(ctx context.Context) error {
	all := make([]Mapping, 0, len(t.order))
	for _, id := range t.order {
		all = append(all, t.byDevice[id])
	}
	if err := t.store.SaveAll(ctx, all); err != nil {
		return fmt.Errorf("%w: %w", ErrStoreFailed, err)
	}
	return nil
}
