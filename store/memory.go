package store

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// LocationRow is one historized record in the in-memory store.
type LocationRow struct {
	VehicleID string
	IMEI      string
	Telemetry Telemetry
}

// Snapshot is one stored blob in the in-memory store.
type Snapshot struct {
	IMEI string
	Kind uint8
	Data []byte
}

// MemoryStore is a map-backed Gateway for tests and storeless runs.
// It applies the same ignore-older-timestamp rule as the production
// registry.
type MemoryStore struct {
	mu        sync.Mutex
	vehicles  map[string]*Vehicle
	history   []LocationRow
	events    []BehaviorEvent
	raw       map[string][]string
	snapshots map[string]Snapshot
}

var _ Gateway = &MemoryStore{}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		vehicles:  make(map[string]*Vehicle),
		raw:       make(map[string][]string),
		snapshots: make(map[string]Snapshot),
	}
}

// AddVehicle registers a vehicle keyed by IMEI.
func (ms *MemoryStore) AddVehicle(v *Vehicle) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	clone := *v
	ms.vehicles[v.IMEI] = &clone
}

func (ms *MemoryStore) FindVehicleByIMEI(_ context.Context, imei string) (*Vehicle, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	v, ok := ms.vehicles[imei]
	if !ok {
		return nil, nil
	}
	clone := *v
	return &clone, nil
}

func (ms *MemoryStore) UpsertVehicleTelemetry(_ context.Context, imei string, t *Telemetry) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	v, ok := ms.vehicles[imei]
	if !ok {
		return nil
	}
	if !t.Timestamp.After(v.LastLocationTime) {
		return nil
	}
	v.LastLocationTime = t.Timestamp
	return nil
}

func (ms *MemoryStore) AppendLocationHistory(_ context.Context, vehicleID, imei string, t *Telemetry) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.history = append(ms.history, LocationRow{VehicleID: vehicleID, IMEI: imei, Telemetry: *t})
	return nil
}

func (ms *MemoryStore) InsertBehaviorEvent(_ context.Context, event *BehaviorEvent) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.events = append(ms.events, *event)
	return nil
}

func (ms *MemoryStore) SaveSnapshot(_ context.Context, imei string, ts time.Time, kind uint8, data []byte) (string, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	key := fmt.Sprintf("%s/%d_%02X", imei, ts.UnixMilli(), kind)
	ms.snapshots[key] = Snapshot{IMEI: imei, Kind: kind, Data: append([]byte(nil), data...)}
	return key, nil
}

func (ms *MemoryStore) SaveRawFrame(_ context.Context, imei, payload string) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.raw[imei] = append(ms.raw[imei], payload)
	return nil
}

// History returns a copy of all historized rows.
func (ms *MemoryStore) History() []LocationRow {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return append([]LocationRow(nil), ms.history...)
}

// Events returns a copy of all persisted behavior events.
func (ms *MemoryStore) Events() []BehaviorEvent {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	return append([]BehaviorEvent(nil), ms.events...)
}

// Vehicle returns the stored vehicle for an IMEI, or nil.
func (ms *MemoryStore) Vehicle(imei string) *Vehicle {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	if v, ok := ms.vehicles[imei]; ok {
		clone := *v
		return &clone
	}
	return nil
}

// Snapshots returns a copy of all stored snapshots keyed by path.
func (ms *MemoryStore) Snapshots() map[string]Snapshot {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	out := make(map[string]Snapshot, len(ms.snapshots))
	for k, v := range ms.snapshots {
		out[k] = v
	}
	return out
}
