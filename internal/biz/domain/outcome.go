package domain

// DedupLayer names the deduplication layer that matched an event
type DedupLayer string

const (
	LayerNone       DedupLayer = ""
	LayerCache      DedupLayer = "cache"
	LayerBatch      DedupLayer = "batch"
	LayerDurable    DedupLayer = "durable"
	LayerContent    DedupLayer = "content"
	LayerInsertRace DedupLayer = "insert_race"
)

// EventState is the terminal state of one event in the pipeline
type EventState string

const (
	StateDiscarded EventState = "discarded"
	StatePersisted EventState = "persisted"
)

// EventOutcome reports what the pipeline did with one event
type EventOutcome struct {
	State     EventState
	Layer     DedupLayer // set when discarded as a duplicate
	Reason    string     // set when discarded for another reason
	MessageID string     // set when persisted
	Status    MessageStatus
}

// Discarded builds a duplicate outcome for the given layer
func Discarded(layer DedupLayer) EventOutcome {
	return EventOutcome{State: StateDiscarded, Layer: layer}
}

// Dropped builds a non-duplicate discard outcome
func Dropped(reason string) EventOutcome {
	return EventOutcome{State: StateDiscarded, Reason: reason}
}

// Persisted builds a persisted outcome
func Persisted(messageID string, status MessageStatus) EventOutcome {
	return EventOutcome{State: StatePersisted, MessageID: messageID, Status: status}
}

// IsDuplicate reports whether a dedup layer matched
func (o EventOutcome) IsDuplicate() bool {
	return o.State == StateDiscarded && o.Layer != LayerNone
}
