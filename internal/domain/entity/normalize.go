package entity

import (
	"regexp"
	"strings"

	"github.com/google/uuid"
)

// Kind is the expected record kind for a raw identifier being normalized.
type Kind string

const (
	KindTicket  Kind = "ticket"
	KindArticle Kind = "article"
	KindTeam    Kind = "team"
	KindUser    Kind = "user"
)

// Normalized is a canonicalized identifier with its detected format.
type Normalized struct {
	Value           string `json:"value"`
	NormalizedValue string `json:"normalized_value,omitempty"`
	Format          string `json:"format"`
}

const (
	FormatUUID      = "uuid"
	FormatReference = "reference"
	FormatTitle     = "title"
	FormatName      = "name"
	FormatRaw       = "raw"
)

// referencePrefixes maps record kinds to their short-reference code prefix.
var referencePrefixes = map[Kind]string{
	KindTicket:  "TK",
	KindArticle: "KB",
	KindTeam:    "TM",
}

var referenceRe = regexp.MustCompile(`^([A-Za-z]{2})-(\d+)$`)

// Normalize canonicalizes a raw identifier. Detection order: UUID, then the
// kind's short-reference pattern (numeric suffix captured in NormalizedValue),
// then human-readable title or name. Pure; never fails: an unrecognized kind
// keeps the raw value with format "raw".
func Normalize(raw string, kind Kind) Normalized {
	trimmed := strings.TrimSpace(raw)

	if _, err := uuid.Parse(trimmed); err == nil {
		return Normalized{Value: strings.ToLower(trimmed), Format: FormatUUID}
	}

	if prefix, ok := referencePrefixes[kind]; ok {
		if m := referenceRe.FindStringSubmatch(trimmed); m != nil && strings.EqualFold(m[1], prefix) {
			return Normalized{
				Value:           strings.ToUpper(m[1]) + "-" + m[2],
				NormalizedValue: m[2],
				Format:          FormatReference,
			}
		}
	}

	switch kind {
	case KindTicket, KindArticle:
		return Normalized{Value: trimmed, Format: FormatTitle}
	case KindTeam, KindUser:
		return Normalized{Value: trimmed, Format: FormatName}
	}
	return Normalized{Value: raw, Format: FormatRaw}
}

// IsIdentifier reports whether value is a valid UUID or short reference code
// for the given kind. Used to re-check format invariants on extracted entities.
func IsIdentifier(value string, kind Kind) bool {
	n := Normalize(value, kind)
	return n.Format == FormatUUID || n.Format == FormatReference
}

// IsUUID reports whether value parses as a UUID.
func IsUUID(value string) bool {
	_, err := uuid.Parse(strings.TrimSpace(value))
	return err == nil
}
