package patientsim

import (
	"fmt"
	"sort"
)

// LabSeries is one biomarker tracked over time, as generated by the model.
type LabSeries struct {
	Biomarker      string         `json:"biomarker"`
	Unit           string         `json:"unit"`
	ReferenceRange ReferenceRange `json:"referenceRange"`
	Values         []LabPoint     `json:"values"`
}

// ReferenceRange is the normal interval for a biomarker.
type ReferenceRange struct {
	Min float64 `json:"min"`
	Max float64 `json:"max"`
}

// LabPoint is a single draw.
type LabPoint struct {
	Time  string  `json:"t"`
	Value float64 `json:"value"`
}

// LabResult is one biomarker reading on one report, flagged against its
// reference range.
type LabResult struct {
	Biomarker      string  `json:"biomarker"`
	Value          float64 `json:"value"`
	Unit           string  `json:"unit"`
	ReferenceRange string  `json:"reference_range"`
	Flag           string  `json:"flag"`
}

// LabPanel is every reading taken at one point in time, i.e. one printable
// lab report.
type LabPanel struct {
	DateTime string      `json:"date_time"`
	Labs     []LabResult `json:"labs"`
}

// GroupLabsByDate pivots per-biomarker series into per-date panels, the unit
// a lab report is rendered from. Panels come back oldest first and every
// reading is flagged HIGH, LOW or NORMAL against its reference range.
func GroupLabsByDate(series []LabSeries) []LabPanel {
	byDate := make(map[string][]LabResult)
	for _, s := range series {
		for _, p := range s.Values {
			flag := "NORMAL"
			switch {
			case p.Value > s.ReferenceRange.Max:
				flag = "HIGH"
			case p.Value < s.ReferenceRange.Min:
				flag = "LOW"
			}
			byDate[p.Time] = append(byDate[p.Time], LabResult{
				Biomarker:      s.Biomarker,
				Value:          p.Value,
				Unit:           s.Unit,
				ReferenceRange: fmt.Sprintf("%g-%g", s.ReferenceRange.Min, s.ReferenceRange.Max),
				Flag:           flag,
			})
		}
	}
	panels := make([]LabPanel, 0, len(byDate))
	for dt, labs := range byDate {
		panels = append(panels, LabPanel{DateTime: dt, Labs: labs})
	}
	sort.Slice(panels, func(i, j int) bool { return panels[i].DateTime < panels[j].DateTime })
	return panels
}
