package fhir

import (
	"encoding/json"
	"fmt"
)

// Resource types the portal reads and writes.
const (
	TypePatient           = "Patient"
	TypePractitioner      = "Practitioner"
	TypeAppointment       = "Appointment"
	TypeMedicationRequest = "MedicationRequest"
	TypeDiagnosticReport  = "DiagnosticReport"
	TypeUser              = "User"
)

// Resource is one stored document. Payload is opaque to the store; only the
// accessors in this package give its fields meaning.
type Resource struct {
	ResourceType string
	ID           string
	Payload      map[string]any
}

// MarshalJSON writes the flat FHIR form: payload fields with resourceType and id
// at the top level.
func (r Resource) MarshalJSON() ([]byte, error) {
	doc := make(map[string]any, len(r.Payload)+2)
	for k, v := range r.Payload {
		doc[k] = v
	}
	doc["resourceType"] = r.ResourceType
	if r.ID != "" {
		doc["id"] = r.ID
	}
	return json.Marshal(doc)
}

// UnmarshalJSON splits a flat document back into type, id and payload.
func (r *Resource) UnmarshalJSON(data []byte) error {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("decode resource: %w", err)
	}
	if doc == nil {
		return fmt.Errorf("decode resource: document is null")
	}

	rt, _ := doc["resourceType"].(string)
	id, _ := doc["id"].(string)
	delete(doc, "resourceType")
	delete(doc, "id")

	r.ResourceType = rt
	r.ID = id
	r.Payload = doc
	return nil
}

// Ref returns the reference string pointing at this resource.
func (r Resource) Ref() string {
	return NewReference(r.ResourceType, r.ID)
}

// StripReserved returns a copy of payload without the keys the store owns.
func StripReserved(payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		if k == "resourceType" || k == "id" {
			continue
		}
		out[k] = v
	}
	return out
}
