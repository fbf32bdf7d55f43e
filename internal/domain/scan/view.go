package scan

import (
	"slices"
	"strconv"
	"strings"

	"github.com/dmehra2102/prod-golang-projects/oncoscan/internal/domain"
)

const notAvailable = "N/A"

// FilterByPatient keeps the scans whose patient name equals selected,
// ignoring case. An empty selection keeps everything.
func FilterByPatient(records []Record, selected string) []Record {
	if selected == "" {
		return slices.Clone(records)
	}
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if strings.EqualFold(r.PatientName(), selected) {
			out = append(out, r)
		}
	}
	return out
}

// FilterBySearch keeps the scans whose patient name contains term, ignoring
// case. An empty term keeps everything.
func FilterBySearch(records []Record, term string) []Record {
	if term == "" {
		return slices.Clone(records)
	}
	needle := strings.ToLower(term)
	out := make([]Record, 0, len(records))
	for _, r := range records {
		if strings.Contains(strings.ToLower(r.PatientName()), needle) {
			out = append(out, r)
		}
	}
	return out
}

// Filter applies the patient selection first, then the search term.
func Filter(records []Record, selected, term string) []Record {
	return FilterBySearch(FilterByPatient(records, selected), term)
}

type Group struct {
	PatientName string   `json:"patient_name"`
	Sex         string   `json:"patient_sex"`
	Age         string   `json:"patient_age"`
	Scans       []Record `json:"scans"`
}

// GroupByPatient partitions records by patient name. Groups appear in the
// order their first scan appears; scans keep their input order.
func GroupByPatient(records []Record) []Group {
	groups := make([]Group, 0)
	index := make(map[string]int)

	for _, r := range records {
		name := r.PatientName()
		i, ok := index[name]
		if !ok {
			i = len(groups)
			index[name] = i
			groups = append(groups, newGroup(name, r.Patient))
		}
		groups[i].Scans = append(groups[i].Scans, r)
	}
	return groups
}

func newGroup(name string, p *PatientRef) Group {
	g := Group{PatientName: name, Sex: notAvailable, Age: notAvailable}
	if p == nil {
		return g
	}
	if p.Sex != "" {
		g.Sex = p.Sex
	}
	if p.Age != nil {
		g.Age = strconv.Itoa(*p.Age)
	}
	return g
}

// RemoveByID returns a new slice without the record carrying id. The input is
// never modified, so slices sharing a backing array stay intact.
func RemoveByID(records []Record, id domain.ID) ([]Record, bool) {
	out := make([]Record, 0, len(records))
	removed := false
	for _, r := range records {
		if r.ScanID == id {
			removed = true
			continue
		}
		out = append(out, r)
	}
	return out, removed
}
