package patient

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/dmehra2102/prod-golang-projects/oncoscan/internal/domain"
)

const unnamed = "Unnamed"

// Raw is one element of the patient list as the API sends it. Older
// endpoints used "name"/"age"/"sex" instead of the prefixed keys.
type Raw struct {
	ID          domain.ID `json:"patient_id"`
	PatientName string    `json:"patient_name"`
	Name        string    `json:"name"`
	PatientAge  *int      `json:"patient_age"`
	Age         *int      `json:"age"`
	PatientSex  string    `json:"patient_sex"`
	Sex         string    `json:"sex"`
}

func (r Raw) DisplayName() string {
	switch {
	case r.PatientName != "":
		return r.PatientName
	case r.Name != "":
		return r.Name
	}
	return unnamed
}

type Summary struct {
	ID   domain.ID `json:"patient_id,omitempty"`
	Name string    `json:"patient_name"`
	Age  *int      `json:"patient_age,omitempty"`
	Sex  string    `json:"patient_sex,omitempty"`
}

// ListShape names which of the two response encodings was received.
type ListShape int

const (
	ShapeUnknown ListShape = iota
	ShapeArray             // [ {...}, ... ]
	ShapeWrapped           // { "patients": [ {...}, ... ] }
)

func (s ListShape) String() string {
	switch s {
	case ShapeArray:
		return "array"
	case ShapeWrapped:
		return "wrapped"
	}
	return "unknown"
}

type wrappedList struct {
	Patients []Raw `json:"patients"`
}

// DecodeList decodes either response shape. A wrapper without a "patients"
// key decodes to an empty list; any other top-level value yields an empty
// list together with ErrUnrecognizedListShape.
func DecodeList(data []byte) ([]Raw, ListShape, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return []Raw{}, ShapeUnknown, ErrUnrecognizedListShape
	}

	switch trimmed[0] {
	case '[':
		var list []Raw
		if err := json.Unmarshal(trimmed, &list); err != nil {
			return []Raw{}, ShapeArray, fmt.Errorf("decoding patient array: %w", err)
		}
		return nonNil(list), ShapeArray, nil
	case '{':
		var w wrappedList
		if err := json.Unmarshal(trimmed, &w); err != nil {
			return []Raw{}, ShapeWrapped, fmt.Errorf("decoding patient wrapper: %w", err)
		}
		return nonNil(w.Patients), ShapeWrapped, nil
	}
	return []Raw{}, ShapeUnknown, ErrUnrecognizedListShape
}

func nonNil(list []Raw) []Raw {
	if list == nil {
		return []Raw{}
	}
	return list
}

// Summarize keeps the first record for every distinct display name, in
// input order. Names compare case-sensitively.
func Summarize(raw []Raw) []Summary {
	out := make([]Summary, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))

	for _, r := range raw {
		name := r.DisplayName()
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}

		s := Summary{ID: r.ID, Name: name, Age: r.PatientAge, Sex: r.PatientSex}
		if s.Age == nil {
			s.Age = r.Age
		}
		if s.Sex == "" {
			s.Sex = r.Sex
		}
		out = append(out, s)
	}
	return out
}
