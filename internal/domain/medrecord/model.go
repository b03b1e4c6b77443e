// Package medrecord stores periodic medical checkup reports. Reports are
// independent of the injury ticket lifecycle: each one is created and
// maintained by medical staff and readable by the athlete it concerns.
package medrecord

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Vitals captures the measurements taken at a checkup.
type Vitals struct {
	Height           float64 `json:"height,omitempty"`
	Weight           float64 `json:"weight,omitempty"`
	BMI              float64 `json:"bmi,omitempty"`
	BloodPressure    string  `json:"blood_pressure,omitempty"`
	RestingHeartRate int     `json:"resting_heart_rate,omitempty"`
	OxygenSaturation float64 `json:"oxygen_saturation,omitempty"`
}

// PrescribedMedication is one prescription line on a report.
type PrescribedMedication struct {
	Name   string `json:"name"`
	Dosage string `json:"dosage"`
}

// Attachment references an uploaded file by the opaque ref issued by the
// attachment store.
type Attachment struct {
	Name       string    `json:"name"`
	FileRef    string    `json:"file_ref"`
	UploadDate time.Time `json:"upload_date"`
}

// MedicalReport is a full checkup record.
type MedicalReport struct {
	ID                      uuid.UUID              `db:"id" json:"id"`
	AthleteID               uuid.UUID              `db:"athlete_id" json:"athlete_id"`
	DoctorID                uuid.UUID              `db:"doctor_id" json:"doctor_id"`
	ReportDate              time.Time              `db:"report_date" json:"report_date"`
	TestName                string                 `db:"test_name" json:"test_name"`
	Vitals                  Vitals                 `db:"vitals" json:"vitals"`
	MedicalStatus           string                 `db:"medical_status" json:"medical_status,omitempty"`
	MedicalClearance        string                 `db:"medical_clearance" json:"medical_clearance,omitempty"`
	ChronicMedicalCondition string                 `db:"chronic_medical_condition" json:"chronic_medical_condition,omitempty"`
	PrescribedMedications   []PrescribedMedication `db:"prescribed_medications" json:"prescribed_medications"`
	TestResults             json.RawMessage        `db:"test_results" json:"test_results,omitempty"`
	PhysicianNotes          string                 `db:"physician_notes" json:"physician_notes,omitempty"`
	Recommendations         []string               `db:"recommendations" json:"recommendations"`
	NextCheckupDate         *time.Time             `db:"next_checkup_date" json:"next_checkup_date,omitempty"`
	Attachments             []Attachment           `db:"attachments" json:"attachments"`
	CreatedAt               time.Time              `db:"created_at" json:"created_at"`
	UpdatedAt               time.Time              `db:"updated_at" json:"updated_at"`
}

// Summary is the list-view projection of a report.
type Summary struct {
	ID         uuid.UUID `db:"id" json:"id"`
	AthleteID  uuid.UUID `db:"athlete_id" json:"athlete_id"`
	DoctorID   uuid.UUID `db:"doctor_id" json:"doctor_id"`
	ReportDate time.Time `db:"report_date" json:"report_date"`
	TestName   string    `db:"test_name" json:"test_name"`
}
