package fhir

// BloodTypeExtensionURL is the Patient extension slot holding the ABO/Rh group.
const BloodTypeExtensionURL = "http://clinicportal.local/fhir/StructureDefinition/blood-type"

// Patient is the typed read view of a Patient resource.
type Patient struct {
	ID          string `json:"id"`
	DisplayName string `json:"name"`
	Gender      string `json:"gender,omitempty"`
	BirthDate   string `json:"birthDate,omitempty"`
	Phone       string `json:"phone,omitempty"`
	BloodType   string `json:"bloodType,omitempty"`
}

// PatientFrom reads the patient fields out of r.
func PatientFrom(r Resource) Patient {
	return Patient{
		ID:          r.ID,
		DisplayName: r.displayName(),
		Gender:      r.String("gender"),
		BirthDate:   r.String("birthDate"),
		Phone:       r.telecom("phone"),
		BloodType:   r.Extension(BloodTypeExtensionURL),
	}
}

// Practitioner is the typed read view of a Practitioner resource.
type Practitioner struct {
	ID          string `json:"id"`
	DisplayName string `json:"name"`
	Specialty   string `json:"specialty,omitempty"`
	Phone       string `json:"phone,omitempty"`
}

// PractitionerFrom reads the practitioner fields out of r.
func PractitionerFrom(r Resource) Practitioner {
	return Practitioner{
		ID:          r.ID,
		DisplayName: r.displayName(),
		Specialty:   r.String("qualification", "0", "code", "text"),
		Phone:       r.telecom("phone"),
	}
}

// DisplayName returns the display name of a Patient or Practitioner resource.
func DisplayName(r Resource) string {
	return r.displayName()
}
