package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/Sampath5633/Medica-Backend/internal/core/domain"
	"github.com/Sampath5633/Medica-Backend/internal/core/port"
)

const (
	defaultIntake   = "1-0-1"
	defaultTiming   = "after food"
	defaultFollowup = "Consult a doctor for follow-up."

	unstructuredPlanFollowup = "Could not generate a structured plan. Please consult a doctor."
	generatorErrorFollowup   = "Error communicating with the AI. Please consult a doctor."
)

// medicationPatterns maps a lowercase medication name to "<intake> <timing>".
var medicationPatterns = map[string]string{
	"paracetamol":    "1-1-1 after food",
	"ibuprofen":      "1-0-1 after food",
	"amoxicillin":    "1-1-1 after food",
	"azithromycin":   "1-0-0 before food",
	"cetirizine":     "0-0-1 after food",
	"levocetirizine": "0-0-1 after food",
	"omeprazole":     "1-0-0 before food",
	"pantoprazole":   "1-0-0 before food",
	"metformin":      "1-0-1 after food",
	"amlodipine":     "1-0-0 after food",
	"atorvastatin":   "0-0-1 after food",
	"salbutamol":     "1-1-1 as needed",
	"montelukast":    "0-0-1 after food",
	"ondansetron":    "1-0-1 before food",
	"ors":            "1-1-1 after loose stools",
}

// TreatmentInput carries the patient details used to synthesize a plan.
type TreatmentInput struct {
	Disease    string
	Age        string
	BloodGroup string
	Symptoms   []string
	Duration   string
}

// TreatmentService synthesizes treatment plans through a text generator.
type TreatmentService struct {
	generator port.TextGenerator
	logger    *zap.Logger
}

// NewTreatmentService constructs a TreatmentService.
func NewTreatmentService(generator port.TextGenerator, logger *zap.Logger) *TreatmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TreatmentService{generator: generator, logger: logger}
}

// Plan returns the full prescription for input. Generator failures and unparseable output
// degrade to a fallback plan that points the patient to a doctor.
func (s *TreatmentService) Plan(ctx context.Context, input TreatmentInput) (*domain.Prescription, error) {
	disease := strings.TrimSpace(input.Disease)
	age := strings.TrimSpace(input.Age)
	symptoms := compactStrings(input.Symptoms)
	if disease == "" || age == "" || len(symptoms) == 0 {
		return nil, fmt.Errorf("%w: missing required patient information", ErrInvalidInput)
	}

	prescription := &domain.Prescription{
		Disease:    disease,
		Age:        age,
		BloodGroup: strings.TrimSpace(input.BloodGroup),
		Symptoms:   symptoms,
		Duration:   strings.TrimSpace(input.Duration),
	}
	prescription.Treatment = s.generatePlan(ctx, *prescription)
	applyMedicationPatterns(prescription.Treatment.Medications)

	return prescription, nil
}

func (s *TreatmentService) generatePlan(ctx context.Context, p domain.Prescription) domain.TreatmentPlan {
	if s.generator == nil {
		return fallbackPlan(generatorErrorFollowup)
	}

	raw, err := s.generator.Generate(ctx, buildTreatmentPrompt(p))
	if err != nil {
		s.logger.Error("treatment generation failed", zap.String("disease", p.Disease), zap.Error(err))
		return fallbackPlan(generatorErrorFollowup)
	}

	plan, err := parseTreatmentPlan(raw)
	if err != nil {
		s.logger.Warn("treatment output is not a structured plan", zap.String("disease", p.Disease), zap.Error(err))
		return fallbackPlan(unstructuredPlanFollowup)
	}
	return plan
}

func buildTreatmentPrompt(p domain.Prescription) string {
	var b strings.Builder
	b.WriteString("You are an AI medical assistant.\n\n")
	b.WriteString("Patient Details:\n")
	fmt.Fprintf(&b, "- Disease: %s\n", p.Disease)
	fmt.Fprintf(&b, "- Age: %s\n", p.Age)
	fmt.Fprintf(&b, "- Blood Group: %s\n", p.BloodGroup)
	fmt.Fprintf(&b, "- Symptoms: %s\n", strings.Join(p.Symptoms, ", "))
	fmt.Fprintf(&b, "- Duration: %s days\n\n", p.Duration)
	b.WriteString("Instructions:\n")
	b.WriteString("1. Generate exactly 3 medications strictly based on the disease (ignore symptoms).\n")
	b.WriteString("2. Return a JSON ONLY with the format:\n")
	b.WriteString("{\n")
	b.WriteString(`  "medications": ["Medicine1", "Medicine2", "Medicine3"],` + "\n")
	b.WriteString(`  "lifestyle": ["point1", "point2", "point3"],` + "\n")
	b.WriteString(`  "followup": "short sentence about follow-up"` + "\n")
	b.WriteString("}\n")
	b.WriteString("3. Do NOT include any explanations or extra text.\n")
	return b.String()
}

type rawTreatmentPlan struct {
	Medications []json.RawMessage `json:"medications"`
	Lifestyle   []string          `json:"lifestyle"`
	Followup    *string           `json:"followup"`
}

// parseTreatmentPlan decodes generator output, tolerating markdown fences and medications
// given either as plain names or as objects.
func parseTreatmentPlan(raw string) (domain.TreatmentPlan, error) {
	text := stripCodeFence(raw)

	var decoded rawTreatmentPlan
	if err := json.Unmarshal([]byte(text), &decoded); err != nil {
		return domain.TreatmentPlan{}, fmt.Errorf("decode plan: %w", err)
	}

	plan := domain.TreatmentPlan{
		Medications: make([]domain.Medication, 0, len(decoded.Medications)),
		Lifestyle:   decoded.Lifestyle,
		Followup:    defaultFollowup,
	}
	if plan.Lifestyle == nil {
		plan.Lifestyle = []string{}
	}
	if decoded.Followup != nil {
		plan.Followup = *decoded.Followup
	}

	for _, item := range decoded.Medications {
		var med domain.Medication
		if err := json.Unmarshal(item, &med); err == nil && med.Name != "" {
			plan.Medications = append(plan.Medications, med)
			continue
		}
		var name string
		if err := json.Unmarshal(item, &name); err == nil {
			plan.Medications = append(plan.Medications, domain.Medication{Name: name})
			continue
		}
		plan.Medications = append(plan.Medications, domain.Medication{Name: strings.TrimSpace(string(item))})
	}

	return plan, nil
}

func stripCodeFence(raw string) string {
	text := strings.TrimSpace(raw)
	if strings.HasPrefix(text, "```json") {
		text = strings.TrimSpace(text[len("```json"):])
	} else if strings.HasPrefix(text, "```") {
		text = strings.TrimSpace(text[len("```"):])
	}
	if strings.HasSuffix(text, "```") {
		text = strings.TrimSpace(text[:len(text)-len("```")])
	}
	return text
}

// applyMedicationPatterns sets intake and timing from the pattern table, case-insensitively,
// falling back to the default schedule.
func applyMedicationPatterns(meds []domain.Medication) {
	for i := range meds {
		pattern, ok := medicationPatterns[strings.ToLower(strings.TrimSpace(meds[i].Name))]
		if !ok {
			meds[i].Intake = defaultIntake
			meds[i].Timing = defaultTiming
			continue
		}
		intake, timing, _ := strings.Cut(pattern, " ")
		meds[i].Intake = intake
		meds[i].Timing = timing
	}
}

func fallbackPlan(followup string) domain.TreatmentPlan {
	return domain.TreatmentPlan{
		Medications: []domain.Medication{},
		Lifestyle:   []string{},
		Followup:    followup,
	}
}

func compactStrings(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
