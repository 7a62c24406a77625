package model

import (
	"fmt"
	"strings"
)

type Location struct {
	Dimension string  `json:"dimension"`
	Biome     string  `json:"biome"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
}

// EntitySnapshot describes an entity at the moment an event touched it.
// Identity fields go to the Entity node; Location and State are stored on
// the INITIATED / TARGETED edge.
type EntitySnapshot struct {
	EntityID   string         `json:"entity_id"`
	EntityType string         `json:"entity_type"`
	Name       string         `json:"name,omitempty"`
	Location   *Location      `json:"location,omitempty"`
	State      map[string]any `json:"state,omitempty"`
}

// EventPayload is an externally reported physical interaction.
type EventPayload struct {
	SessionID string          `json:"session_id"`
	WorldTime int64           `json:"world_time"`
	Timestamp string          `json:"timestamp,omitempty"`
	Subject   *EntitySnapshot `json:"subject"`
	Verb      string          `json:"verb"`
	Details   map[string]any  `json:"details,omitempty"`
	Object    *EntitySnapshot `json:"object,omitempty"`
}

// Validate checks the payload shape. The returned error is plain; callers
// classify it.
func (p *EventPayload) Validate() error {
	if strings.TrimSpace(p.SessionID) == "" {
		return fmt.Errorf("session_id is required")
	}
	if p.Subject == nil || strings.TrimSpace(p.Subject.EntityID) == "" {
		return fmt.Errorf("subject with entity_id is required")
	}
	if strings.TrimSpace(p.Verb) == "" {
		return fmt.Errorf("verb is required")
	}
	if p.WorldTime < 0 {
		return fmt.Errorf("world_time must not be negative")
	}
	if p.Object != nil && strings.TrimSpace(p.Object.EntityID) == "" {
		return fmt.Errorf("object entity_id is required when object is present")
	}
	return nil
}

// Describe renders the payload as one line for prompts and logs.
func (p *EventPayload) Describe() string {
	if p == nil || p.Subject == nil {
		return ""
	}
	subject := p.Subject.Name
	if subject == "" {
		subject = p.Subject.EntityID
	}
	line := fmt.Sprintf("%s %s", subject, p.Verb)
	if p.Object != nil {
		object := p.Object.Name
		if object == "" {
			object = p.Object.EntityID
		}
		line += " " + object
	}
	return fmt.Sprintf("%s (world_time=%d)", line, p.WorldTime)
}
