package domain

// Medication is a single prescribed drug with its dosing schedule.
type Medication struct {
	Name   string `json:"name"`
	Intake string `json:"intake,omitempty"`
	Timing string `json:"timing,omitempty"`
}

// TreatmentPlan is the structured plan synthesized for a diagnosis.
type TreatmentPlan struct {
	Medications []Medication `json:"medications"`
	Lifestyle   []string     `json:"lifestyle"`
	Followup    string       `json:"followup"`
}

// Prescription combines patient details with a treatment plan.
type Prescription struct {
	Disease    string        `json:"disease"`
	Age        string        `json:"age"`
	BloodGroup string        `json:"blood_group"`
	Symptoms   []string      `json:"symptoms"`
	Duration   string        `json:"duration"`
	Treatment  TreatmentPlan `json:"treatment"`
}
