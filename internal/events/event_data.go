package events

// EventData is the interface that all event data types must implement
// This allows for type-safe event data while maintaining flexibility
type EventData interface {
	// EventType returns the event type this data is associated with
	EventType() EventType
}

// SnapshotUpdatedData contains data for SnapshotUpdated events
type SnapshotUpdatedData struct {
	Key      string  `json:"key"`
	RunID    string  `json:"run_id"`
	Status   string  `json:"status"`
	Variance float64 `json:"variance"`
	Currency string  `json:"currency"`
	Summary  string  `json:"summary"`
}

// EventType returns the event type for SnapshotUpdatedData
func (d *SnapshotUpdatedData) EventType() EventType {
	return SnapshotUpdated
}

// StatusChangedData contains data for StatusChanged events
type StatusChangedData struct {
	Key       string `json:"key"`
	OldStatus string `json:"old_status"`
	NewStatus string `json:"new_status"`
}

// EventType returns the event type for StatusChangedData
func (d *StatusChangedData) EventType() EventType {
	return StatusChanged
}

// PollFailedData contains data for PollFailed events
type PollFailedData struct {
	Key   string `json:"key"`
	Error string `json:"error"`
	Kind  string `json:"kind,omitempty"`
}

// EventType returns the event type for PollFailedData
func (d *PollFailedData) EventType() EventType {
	return PollFailed
}

// CacheClearedData contains data for CacheCleared events
type CacheClearedData struct {
	Reason string `json:"reason"`
}

// EventType returns the event type for CacheClearedData
func (d *CacheClearedData) EventType() EventType {
	return CacheCleared
}
