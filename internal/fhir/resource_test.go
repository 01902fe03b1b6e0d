package fhir

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestResourceJSONIsFlat(t *testing.T) {
	r := Resource{
		ResourceType: TypePatient,
		ID:           "p1",
		Payload:      map[string]any{"gender": "female"},
	}

	data, err := json.Marshal(r)
	require.NoError(t, err)
	assert.JSONEq(t, `{"resourceType":"Patient","id":"p1","gender":"female"}`, string(data))

	var back Resource
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, r, back)
	assert.NotContains(t, back.Payload, "resourceType")
}

func TestResourceUnmarshalRejectsNull(t *testing.T) {
	var r Resource
	assert.Error(t, json.Unmarshal([]byte("null"), &r))
	assert.Error(t, json.Unmarshal([]byte("[1]"), &r))
}

func TestStripReserved(t *testing.T) {
	in := map[string]any{"id": "x", "resourceType": "Patient", "gender": "male"}
	out := StripReserved(in)

	assert.Equal(t, map[string]any{"gender": "male"}, out)
	assert.Len(t, in, 3)
}

func TestLookup(t *testing.T) {
	r := Resource{Payload: map[string]any{
		"name": []any{map[string]any{"given": []any{"Ana", "Maria"}, "family": "Silva"}},
		"age":  42.0,
	}}

	assert.Equal(t, "Maria", r.String("name", "0", "given", "1"))
	assert.Equal(t, "", r.String("name", "1", "family"))
	assert.Equal(t, "", r.String("name", "x"))
	assert.Equal(t, "", r.String("age"))
	assert.Equal(t, "n/a", r.StringOr("n/a", "missing"))
	assert.Nil(t, r.List("age"))
}

func TestDisplayName(t *testing.T) {
	tests := []struct {
		name string
		in   map[string]any
		want string
	}{
		{"text wins", map[string]any{"name": []any{map[string]any{"text": "Dr. House", "family": "House"}}}, "Dr. House"},
		{"prefix given family", map[string]any{"name": []any{map[string]any{
			"prefix": []any{"Dr."}, "given": []any{"Gregory"}, "family": "House",
		}}}, "Dr. Gregory House"},
		{"no name", map[string]any{}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DisplayName(Resource{Payload: tt.in}))
		})
	}
}

func TestPatientFrom(t *testing.T) {
	p := PatientFrom(Resource{ResourceType: TypePatient, ID: "p1", Payload: map[string]any{
		"name":      []any{map[string]any{"text": "Ana Silva"}},
		"gender":    "female",
		"birthDate": "1990-04-02",
		"telecom": []any{
			map[string]any{"system": "email", "value": "ana@example.org"},
			map[string]any{"system": "phone", "value": "+351 900 000 000"},
		},
		"extension": []any{map[string]any{"url": BloodTypeExtensionURL, "valueString": "O+"}},
	}})

	assert.Equal(t, Patient{
		ID:          "p1",
		DisplayName: "Ana Silva",
		Gender:      "female",
		BirthDate:   "1990-04-02",
		Phone:       "+351 900 000 000",
		BloodType:   "O+",
	}, p)
}

func TestAppointmentFrom(t *testing.T) {
	a := AppointmentFrom(Resource{ResourceType: TypeAppointment, ID: "a1", Payload: map[string]any{
		"status": "booked",
		"start":  "2025-03-10T09:00:00Z",
		"participant": []any{
			map[string]any{"actor": map[string]any{"reference": "Patient/p1"}, "status": "accepted"},
			"not a participant",
			map[string]any{"status": "needs-action"},
		},
	}})

	assert.Equal(t, "booked", a.Status)
	require.Len(t, a.Participants, 2)
	assert.True(t, a.HasParticipant("Patient/p1"))
	assert.False(t, a.HasParticipant("Patient/p2"))
	assert.Equal(t, time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC), a.StartTime())
}

func TestClinicalFrom(t *testing.T) {
	m := MedicationRequestFrom(Resource{ID: "m1", Payload: map[string]any{
		"subject":                   map[string]any{"reference": "Patient/p1"},
		"medicationCodeableConcept": map[string]any{"coding": []any{map[string]any{"display": "Ibuprofen"}}},
	}})
	assert.Equal(t, "Patient/p1", m.Subject)
	assert.Equal(t, "Ibuprofen", m.Medication)

	d := DiagnosticReportFrom(Resource{ID: "r1", Payload: map[string]any{
		"effectiveDateTime": "2025-01-05",
		"code":              map[string]any{"text": "Lipid panel"},
		"performer":         []any{map[string]any{"reference": "Practitioner/d1"}, map[string]any{}},
	}})
	assert.Equal(t, "2025-01-05", d.Issued)
	assert.Equal(t, "Lipid panel", d.Code)
	assert.Equal(t, []string{"Practitioner/d1"}, d.Performers)
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
	}{
		{"2025-03-10T09:00:00Z", time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)},
		{"2025-03-10T09:00:00.5+01:00", time.Date(2025, 3, 10, 8, 0, 0, 500000000, time.UTC)},
		{"2025-03-10T09:00:00", time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)},
		{"2025-03-10T09:00", time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)},
		{"2025-03-10", time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC)},
		{"", time.Time{}},
		{"next tuesday", time.Time{}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.True(t, tt.want.Equal(ParseTimestamp(tt.in)), "got %v", ParseTimestamp(tt.in))
		})
	}
}

func TestDatePart(t *testing.T) {
	assert.Equal(t, "2025-03-10", DatePart("2025-03-10T09:00:00Z"))
	assert.Equal(t, "2025-03-10", DatePart("2025-03-10"))
	assert.Equal(t, "", DatePart(""))
}
