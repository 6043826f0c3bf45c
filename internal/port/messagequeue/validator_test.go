package messagequeue

import (
	"strings"
	"testing"
)

func TestValidateAcceptsWellFormedSearchRequest(t *testing.T) {
	data := []byte(`{"request_id":"abc","query":"printer problem","top_k":5}`)
	if err := Validate(SubjectVectorSearchRequest, data); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsInvalidJSON(t *testing.T) {
	err := Validate(SubjectVectorSearchRequest, []byte(`{not json`))
	if err == nil {
		t.Fatal("expected error for invalid JSON")
	}
	if !strings.Contains(err.Error(), "invalid JSON") {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsWrongShape(t *testing.T) {
	// top_k as a string violates the schema.
	data := []byte(`{"request_id":"abc","query":"x","top_k":"five"}`)
	if err := Validate(SubjectVectorSearchRequest, data); err == nil {
		t.Fatal("expected schema validation error")
	}
}

func TestValidateUnknownSubjectPasses(t *testing.T) {
	if err := Validate("metrics.snapshot", []byte(`{"anything":true}`)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
