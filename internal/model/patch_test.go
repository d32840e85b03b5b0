package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePatchExtractsPID(t *testing.T) {
	pid, patch, err := ParsePatch([]byte(`{"pid": "P004", "city": "Pune"}`))
	assert.NoError(t, err)
	assert.Equal(t, "P004", pid)
	assert.Equal(t, map[string]any{"city": "Pune"}, patch.Fields())
}

func TestParsePatchMissingPID(t *testing.T) {
	pid, patch, err := ParsePatch([]byte(`{"city": "Pune"}`))
	assert.NoError(t, err)
	assert.Empty(t, pid)
	assert.False(t, patch.IsEmpty())
}

func TestParsePatchRejectsUnknownField(t *testing.T) {
	_, _, err := ParsePatch([]byte(`{"pid": "P004", "nickname": "JD"}`))
	var ve *ValidationError
	assert.ErrorAs(t, err, &ve)
	assert.Equal(t, "nickname", ve.Fields[0].Field)
}

func TestParsePatchConstraintViolations(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad age", `{"age": 200}`},
		{"fractional age", `{"age": 30.5}`},
		{"bad gender", `{"gender": "robot"}`},
		{"bad height", `{"height": 30}`},
		{"bad weight", `{"weight": -2}`},
		{"bad email", `{"email": "nope"}`},
		{"bad date", `{"date_of_discharge": "01/04/2025"}`},
		{"null name", `{"name": null}`},
		{"empty city", `{"city": ""}`},
		{"short pid", `{"pid": "P1"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := ParsePatch([]byte(tt.body))
			var ve *ValidationError
			assert.ErrorAs(t, err, &ve)
		})
	}
}

func TestParsePatchNullClearsNullableFields(t *testing.T) {
	_, patch, err := ParsePatch([]byte(`{"email": null, "date_of_discharge": null}`))
	assert.NoError(t, err)

	fields := patch.Fields()
	v, present := fields["email"]
	assert.True(t, present)
	assert.Nil(t, v)
	v, present = fields["date_of_discharge"]
	assert.True(t, present)
	assert.Nil(t, v)
}

func TestPatchApplyOnlyTouchesSuppliedFields(t *testing.T) {
	_, patch, err := ParsePatch([]byte(`{"city": "Pune"}`))
	assert.NoError(t, err)

	doc := map[string]any{
		"name":   "John Doe",
		"city":   "Mumbai",
		"age":    float64(30),
		"weight": 70.0,
	}
	changed := patch.Apply(doc)

	assert.True(t, changed)
	assert.Equal(t, "Pune", doc["city"])
	assert.Equal(t, "John Doe", doc["name"])
	assert.Equal(t, float64(30), doc["age"])
	assert.Equal(t, 70.0, doc["weight"])
}

func TestPatchApplyDetectsNoOp(t *testing.T) {
	_, patch, err := ParsePatch([]byte(`{"city": "Mumbai", "age": 30}`))
	assert.NoError(t, err)

	doc := map[string]any{"city": "Mumbai", "age": float64(30)}
	assert.False(t, patch.Apply(doc))
}

func TestPatchEmpty(t *testing.T) {
	pid, patch, err := ParsePatch([]byte(`{"pid": "P004"}`))
	assert.NoError(t, err)
	assert.Equal(t, "P004", pid)
	assert.True(t, patch.IsEmpty())
}
