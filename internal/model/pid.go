package model

import (
	"fmt"
	"strconv"
	"unicode"
)

// PatientID is the sequential record identifier: a letter prefix and a
// counter rendered zero-padded to at least three digits ("P001", "P099",
// "P1000"). Parse and String round-trip; arithmetic never happens on the
// raw text anywhere else.
type PatientID struct {
	Prefix string
	Number int
}

// SeedPatientID is the identifier assigned to the very first record.
var SeedPatientID = PatientID{Prefix: "P", Number: 1}

// ParsePatientID parses a rendered identifier.
func ParsePatientID(s string) (PatientID, error) {
	if len(s) < 2 || !unicode.IsLetter(rune(s[0])) {
		return PatientID{}, fmt.Errorf("malformed patient id %q", s)
	}
	n, err := strconv.Atoi(s[1:])
	if err != nil || n < 0 {
		return PatientID{}, fmt.Errorf("malformed patient id %q", s)
	}
	return PatientID{Prefix: s[:1], Number: n}, nil
}

func (id PatientID) String() string {
	return fmt.Sprintf("%s%03d", id.Prefix, id.Number)
}

// Next returns the following identifier with the same prefix. Growth is
// open-ended: P999 is followed by P1000.
func (id PatientID) Next() PatientID {
	return PatientID{Prefix: id.Prefix, Number: id.Number + 1}
}
