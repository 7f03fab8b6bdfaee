package feature

import "time"

// Metadata describes a single feature: identity, ownership, declared type,
// and lifecycle state. Name is unique within an entity and group.
type Metadata struct {
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Type        Type      `json:"type"`
	Entity      string    `json:"entity"`
	Owner       string    `json:"owner"`
	Tags        []string  `json:"tags,omitempty"`
	Status      Status    `json:"status"`
	Version     string    `json:"version"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewMetadata builds feature metadata with draft status, version 1.0.0,
// and creation timestamps set to now.
func NewMetadata(name, description string, typ Type, entity, owner string, tags ...string) *Metadata {
	now := time.Now().UTC()
	return &Metadata{
		Name:        name,
		Description: description,
		Type:        typ,
		Entity:      entity,
		Owner:       owner,
		Tags:        tags,
		Status:      StatusDraft,
		Version:     "1.0.0",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// Activate transitions the feature to active.
func (m *Metadata) Activate() {
	m.Status = StatusActive
	m.UpdatedAt = time.Now().UTC()
}

// Deprecate transitions the feature to deprecated from any state.
func (m *Metadata) Deprecate() {
	m.Status = StatusDeprecated
	m.UpdatedAt = time.Now().UTC()
}

// Archive transitions a deprecated feature to the terminal archived state.
// It reports false, without modifying the metadata, for any other state.
func (m *Metadata) Archive() bool {
	if m.Status != StatusDeprecated {
		return false
	}
	m.Status = StatusArchived
	m.UpdatedAt = time.Now().UTC()
	return true
}
