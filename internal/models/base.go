package models

import (
	"github.com/google/uuid"
)

// Base carries the document id. Ids are random UUID strings.
type Base struct {
	ID string `bson:"_id,omitempty" json:"id,omitempty"`
}

func (m *Base) GenIDIfEmpty() {
	if m.ID == "" {
		m.GenID()
	}
}

func (m *Base) GenID() {
	m.ID = NewID()
}

func (m *Base) SetID(id string) {
	m.ID = id
}

func NewBase() Base {
	return Base{
		ID: NewID(),
	}
}

// NewID returns a fresh document id.
func NewID() string {
	return uuid.NewString()
}
