package model

import (
	"math"
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// validate is the shared validator instance. Field names in validation
// errors use the json tag so they match the wire shape.
var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// DateLayout is the canonical text form for stored dates.
const DateLayout = "2006-01-02"

// PatientInput carries the raw fields of a patient record before
// validation. Dates travel as YYYY-MM-DD text end to end; the store has
// no native date type.
type PatientInput struct {
	Name            string  `json:"name" validate:"required"`
	City            string  `json:"city" validate:"required"`
	Age             int     `json:"age" validate:"gt=0,lt=150"`
	Gender          string  `json:"gender" validate:"oneof=male female others"`
	Height          float64 `json:"height" validate:"gt=0,lt=25"`
	Weight          float64 `json:"weight" validate:"gt=0"`
	PID             string  `json:"pid" validate:"len=4"`
	DateOfDischarge string  `json:"date_of_discharge" validate:"omitempty,datetime=2006-01-02"`
	Email           string  `json:"email" validate:"omitempty,email"`
}

// Patient is a validated record. BMI, Verdict and DateOfAdmission are
// derived once at construction and never set by callers.
type Patient struct {
	Name            string  `json:"name"`
	City            string  `json:"city"`
	Age             int     `json:"age"`
	Gender          string  `json:"gender"`
	Height          float64 `json:"height"`
	Weight          float64 `json:"weight"`
	PID             string  `json:"pid"`
	DateOfDischarge string  `json:"date_of_discharge,omitempty"`
	Email           string  `json:"email,omitempty"`
	BMI             float64 `json:"bmi"`
	Verdict         string  `json:"verdict"`
	DateOfAdmission string  `json:"date_of_admission"`
}

// NewPatient validates every field of in and, on success, returns the
// record with its derived fields populated. admittedAt must already be
// in the configured timezone; it is persisted as ISO-8601 text.
// Validation failures come back as *ValidationError listing every
// violated field.
func NewPatient(in PatientInput, admittedAt time.Time) (*Patient, error) {
	if err := validate.Struct(in); err != nil {
		return nil, asValidationError(err)
	}

	bmi := ComputeBMI(in.Weight, in.Height)
	return &Patient{
		Name:            in.Name,
		City:            in.City,
		Age:             in.Age,
		Gender:          in.Gender,
		Height:          in.Height,
		Weight:          in.Weight,
		PID:             in.PID,
		DateOfDischarge: in.DateOfDischarge,
		Email:           in.Email,
		BMI:             bmi,
		Verdict:         VerdictFor(bmi),
		DateOfAdmission: admittedAt.Format(time.RFC3339),
	}, nil
}

// ComputeBMI returns weight/height² rounded to two decimals.
func ComputeBMI(weight, height float64) float64 {
	return math.Round(weight/(height*height)*100) / 100
}

// VerdictFor classifies a BMI value. Bands are half-open on the upper
// bound, so 18.5 is already "Normal Weight".
func VerdictFor(bmi float64) string {
	switch {
	case bmi < 16.0:
		return "Severely Underweight"
	case bmi < 17.0:
		return "Moderately Underweight"
	case bmi < 18.5:
		return "Underweight"
	case bmi < 25.0:
		return "Normal Weight"
	case bmi < 30.0:
		return "Overweight"
	case bmi < 35.0:
		return "Moderately Obese"
	case bmi < 40.0:
		return "Severely Obese"
	default:
		return "Very Severely Obese"
	}
}

// RecomputeDerived refreshes bmi and verdict on a stored document after
// its vitals changed. The admission timestamp is a creation snapshot and
// stays untouched.
func RecomputeDerived(doc map[string]any) {
	weight, wok := doc["weight"].(float64)
	height, hok := doc["height"].(float64)
	if !wok || !hok || height <= 0 {
		return
	}
	bmi := ComputeBMI(weight, height)
	doc["bmi"] = bmi
	doc["verdict"] = VerdictFor(bmi)
}

// Document renders the record as the persisted document shape: one map
// per patient, scalar JSON types only, dates as text. Optional fields
// that were never supplied are stored as null, matching what earlier
// snapshots of this service wrote.
func (p *Patient) Document() map[string]any {
	doc := map[string]any{
		"name":              p.Name,
		"city":              p.City,
		"age":               float64(p.Age),
		"gender":            p.Gender,
		"height":            p.Height,
		"weight":            p.Weight,
		"pid":               p.PID,
		"bmi":               p.BMI,
		"verdict":           p.Verdict,
		"date_of_admission": p.DateOfAdmission,
	}
	if p.DateOfDischarge != "" {
		doc["date_of_discharge"] = p.DateOfDischarge
	} else {
		doc["date_of_discharge"] = nil
	}
	if p.Email != "" {
		doc["email"] = p.Email
	} else {
		doc["email"] = nil
	}
	return doc
}
