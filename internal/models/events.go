package models

import "time"

// ProfileEventType is the kind of row change carried by a ProfileEvent.
type ProfileEventType string

const (
	ProfileEventInsert ProfileEventType = "INSERT"
	ProfileEventUpdate ProfileEventType = "UPDATE"
)

// ProfilesTable is the table name carried by profile change events.
const ProfilesTable = "profiles"

// ProfileEvent is a row-level change notification for the profiles table.
// New is always the full row after the change.
type ProfileEvent struct {
	Type            ProfileEventType `json:"type"`
	Table           string           `json:"table"`
	New             *Profile         `json:"new"`
	Old             *Profile         `json:"old,omitempty"`
	CommitTimestamp time.Time        `json:"commit_timestamp"`
}

// NewProfileEvent builds an event for a committed change.
func NewProfileEvent(kind ProfileEventType, old, updated *Profile) ProfileEvent {
	return ProfileEvent{
		Type:            kind,
		Table:           ProfilesTable,
		New:             updated.Clone(),
		Old:             old.Clone(),
		CommitTimestamp: time.Now().UTC(),
	}
}

// SubjectID is the id of the profile the event is about.
func (e ProfileEvent) SubjectID() string {
	if e.New != nil {
		return e.New.ID
	}
	if e.Old != nil {
		return e.Old.ID
	}
	return ""
}
