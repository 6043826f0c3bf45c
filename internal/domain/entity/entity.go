// Package entity provides typed, confidence-scored values extracted from
// operator text or retrieved context, plus the normalizer that canonicalizes
// raw identifiers (UUID, short reference code, human-readable title).
package entity

// Entity is a typed value extracted from text or context. Confidence is in
// [0,1] and only ever decreases after extraction (format-validation downgrades).
type Entity struct {
	Type            string            `json:"type"`
	Value           string            `json:"value"`
	Confidence      float64           `json:"confidence"`
	NormalizedValue string            `json:"normalized_value,omitempty"`
	Metadata        map[string]string `json:"metadata,omitempty"`
}

// Format returns the identifier format recorded during normalization
// (uuid, reference, title, name or raw), or an empty string if unset.
func (e *Entity) Format() string {
	if e.Metadata == nil {
		return ""
	}
	return e.Metadata["format"]
}

// TicketRef is a ticket entry in a grouped entity set. Priority is annotated
// onto every ticket entry when a priority entity is present in the same set.
type TicketRef struct {
	Value           string `json:"value"`
	NormalizedValue string `json:"normalized_value,omitempty"`
	Format          string `json:"format,omitempty"`
	Priority        string `json:"priority,omitempty"`
}

// SkillRef is a skill requirement extracted alongside a ticket request.
type SkillRef struct {
	Name        string `json:"name"`
	Proficiency int    `json:"proficiency,omitempty"`
}

// Groups is the semantic bucketing of an extracted entity set.
type Groups struct {
	Tickets     []TicketRef `json:"tickets,omitempty"`
	Users       []string    `json:"users,omitempty"`
	Topic       string      `json:"topic,omitempty"`
	Articles    []string    `json:"kb,omitempty"`
	Team        string      `json:"team,omitempty"`
	TeamMembers []string    `json:"team_members,omitempty"`
	Skills      []SkillRef  `json:"skills,omitempty"`
	Priority    string      `json:"priority,omitempty"`
	Status      string      `json:"status,omitempty"`
}
