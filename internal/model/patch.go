package model

import (
	"encoding/json"
	"math"
)

// Patch is a sparse update: only fields the caller explicitly supplied
// are recorded, so "omitted" and "set to null" stay distinguishable
// downstream. Supplied values pass the same per-field constraints as
// record construction. A supplied value is always applied on merge; an
// omitted field is never touched. Null clears the nullable fields
// (email, date_of_discharge) and is a violation everywhere else.
type Patch struct {
	fields map[string]any
}

// ParsePatch decodes an update request body. The pid identifies the
// target record and is returned separately, never merged as data.
// date_of_admission is a creation snapshot and is rejected like any
// other unknown field. Unknown fields and constraint violations are
// reported together in a single *ValidationError.
func ParsePatch(raw []byte) (string, *Patch, error) {
	var body map[string]json.RawMessage
	if err := json.Unmarshal(raw, &body); err != nil {
		return "", nil, err
	}

	patch := &Patch{fields: make(map[string]any, len(body))}
	ve := &ValidationError{}
	var pid string

	for key, rv := range body {
		switch key {
		case "pid":
			s, ok := decodeString(rv)
			if !ok {
				ve.Fields = append(ve.Fields, FieldError{Field: "pid", Constraint: "len=4"})
				continue
			}
			if err := validate.Var(s, "len=4"); err != nil {
				ve.Fields = append(ve.Fields, FieldError{Field: "pid", Constraint: "len=4"})
				continue
			}
			pid = s

		case "name", "city":
			s, ok := decodeString(rv)
			if !ok || s == "" {
				ve.Fields = append(ve.Fields, FieldError{Field: key, Constraint: "required"})
				continue
			}
			patch.fields[key] = s

		case "gender":
			s, ok := decodeString(rv)
			if !ok || validate.Var(s, "oneof=male female others") != nil {
				ve.Fields = append(ve.Fields, FieldError{Field: key, Constraint: "oneof=male female others"})
				continue
			}
			patch.fields[key] = s

		case "age":
			f, ok := decodeNumber(rv)
			if !ok || f != math.Trunc(f) || validate.Var(f, "gt=0,lt=150") != nil {
				ve.Fields = append(ve.Fields, FieldError{Field: key, Constraint: "gt=0,lt=150"})
				continue
			}
			patch.fields[key] = f

		case "height":
			f, ok := decodeNumber(rv)
			if !ok || validate.Var(f, "gt=0,lt=25") != nil {
				ve.Fields = append(ve.Fields, FieldError{Field: key, Constraint: "gt=0,lt=25"})
				continue
			}
			patch.fields[key] = f

		case "weight":
			f, ok := decodeNumber(rv)
			if !ok || validate.Var(f, "gt=0") != nil {
				ve.Fields = append(ve.Fields, FieldError{Field: key, Constraint: "gt=0"})
				continue
			}
			patch.fields[key] = f

		case "email":
			if isNull(rv) {
				patch.fields[key] = nil
				continue
			}
			s, ok := decodeString(rv)
			if !ok || validate.Var(s, "email") != nil {
				ve.Fields = append(ve.Fields, FieldError{Field: key, Constraint: "email"})
				continue
			}
			patch.fields[key] = s

		case "date_of_discharge":
			if isNull(rv) {
				patch.fields[key] = nil
				continue
			}
			s, ok := decodeString(rv)
			if !ok || validate.Var(s, "datetime=2006-01-02") != nil {
				ve.Fields = append(ve.Fields, FieldError{Field: key, Constraint: "datetime=" + DateLayout})
				continue
			}
			patch.fields[key] = s

		default:
			ve.Fields = append(ve.Fields, FieldError{Field: key, Constraint: "unknown field"})
		}
	}

	if len(ve.Fields) > 0 {
		return "", nil, ve
	}
	return pid, patch, nil
}

// IsEmpty reports whether the patch carries no fields to apply.
func (p *Patch) IsEmpty() bool {
	return len(p.fields) == 0
}

// Fields returns a copy of the explicitly supplied field set.
func (p *Patch) Fields() map[string]any {
	out := make(map[string]any, len(p.fields))
	for k, v := range p.fields {
		out[k] = v
	}
	return out
}

// Apply merges the supplied fields into doc and reports whether any
// value actually changed. Derived fields on the document are left to the
// access layer to reconcile.
func (p *Patch) Apply(doc map[string]any) bool {
	changed := false
	for k, v := range p.fields {
		if old, had := doc[k]; !had || old != v {
			changed = true
		}
		doc[k] = v
	}
	return changed
}

func isNull(rv json.RawMessage) bool {
	var v any
	if err := json.Unmarshal(rv, &v); err != nil {
		return false
	}
	return v == nil
}

func decodeString(rv json.RawMessage) (string, bool) {
	var s string
	if err := json.Unmarshal(rv, &s); err != nil {
		return "", false
	}
	return s, true
}

func decodeNumber(rv json.RawMessage) (float64, bool) {
	var f float64
	if err := json.Unmarshal(rv, &f); err != nil {
		return 0, false
	}
	return f, true
}
