package common

import "fmt"

// ElementKind discriminates the variants of Element.
type ElementKind string

const (
	ElementEntity       ElementKind = "entity"
	ElementRelationship ElementKind = "relationship"
)

// Entity is an extracted node. ID is the canonical key, Name the display
// label as the oracle wrote it.
type Entity struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Type        string `json:"type,omitempty"`
	Description string `json:"description,omitempty"`
}

// Attributes returns the attribute map stored on the graph node.
func (e Entity) Attributes() map[string]string {
	attrs := map[string]string{"name": e.Name}
	if e.Type != "" {
		attrs["type"] = e.Type
	}
	if e.Description != "" {
		attrs["description"] = e.Description
	}
	return attrs
}

// Relationship is an extracted edge between two entity ids.
type Relationship struct {
	Source      string `json:"source"`
	Target      string `json:"target"`
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}

// Attributes returns the attribute map stored on the graph edge.
func (r Relationship) Attributes() map[string]string {
	attrs := map[string]string{}
	if r.Description != "" {
		attrs["description"] = r.Description
	}
	return attrs
}

// Element is a validated unit of extracted knowledge. Exactly one of Entity
// and Relationship is set, matching Kind.
type Element struct {
	Kind         ElementKind   `json:"kind"`
	Entity       *Entity       `json:"entity,omitempty"`
	Relationship *Relationship `json:"relationship,omitempty"`
}

// NewEntityElement wraps e as an Element.
func NewEntityElement(e Entity) Element {
	return Element{Kind: ElementEntity, Entity: &e}
}

// NewRelationshipElement wraps r as an Element.
func NewRelationshipElement(r Relationship) Element {
	return Element{Kind: ElementRelationship, Relationship: &r}
}

// Validate checks that the variant matches Kind and that required keys are set.
func (el Element) Validate() error {
	switch el.Kind {
	case ElementEntity:
		if el.Entity == nil || el.Relationship != nil {
			return fmt.Errorf("entity element has wrong payload")
		}
		if el.Entity.ID == "" {
			return fmt.Errorf("entity element without id")
		}
	case ElementRelationship:
		if el.Relationship == nil || el.Entity != nil {
			return fmt.Errorf("relationship element has wrong payload")
		}
		r := el.Relationship
		if r.Source == "" || r.Target == "" {
			return fmt.Errorf("relationship element without endpoints")
		}
		if r.Source == r.Target {
			return fmt.Errorf("relationship element %q points at itself", r.Source)
		}
	default:
		return fmt.Errorf("unknown element kind %q", el.Kind)
	}
	return nil
}

// Triple is a relation parsed from the labeled text format: (source, relation, target).
type Triple struct {
	Source   string `json:"source"`
	Relation string `json:"relation"`
	Target   string `json:"target"`
}
