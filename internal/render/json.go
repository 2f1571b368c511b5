package render

import (
	"encoding/json"
	"fmt"

	"github.com/johns/lascheck/internal/consistency"
	"github.com/johns/lascheck/internal/lasfmt"
	"github.com/johns/lascheck/internal/lasio"
	"github.com/johns/lascheck/internal/repair"
	"github.com/johns/lascheck/internal/summary"
)

// FileReport is the structured-record rendering of one file's results.
// Built from the same produced data as the text rendering, never
// recomputed.
type FileReport struct {
	Path    string       `json:"path"`
	Header  headerJSON   `json:"header"`
	Summary *summaryJSON `json:"summary,omitempty"`
	Warn    []warnJSON   `json:"warnings,omitempty"`
	Repair  *repairJSON  `json:"repair,omitempty"`
	VLRs    []vlrJSON    `json:"vlrs,omitempty"`
}

type headerJSON struct {
	Version            string     `json:"version"`
	FileSourceID       uint16     `json:"file_source_id"`
	GlobalEncoding     uint16     `json:"global_encoding"`
	GUID               string     `json:"project_guid"`
	SystemID           string     `json:"system_id"`
	Software           string     `json:"software"`
	CreationDay        uint16     `json:"creation_day"`
	CreationYear       uint16     `json:"creation_year"`
	PointFormat        uint8      `json:"point_format"`
	RecordLength       uint16     `json:"record_length"`
	PointCountLegacy   uint32     `json:"point_count_legacy"`
	ByReturnLegacy     [5]uint32  `json:"by_return_legacy"`
	Scale              [3]float64 `json:"scale"`
	Offset             [3]float64 `json:"offset"`
	Min                [3]float64 `json:"min"`
	Max                [3]float64 `json:"max"`
	PointCountExtended uint64     `json:"point_count_extended,omitempty"`
	ByReturnExtended   []uint64   `json:"by_return_extended,omitempty"`
}

type summaryJSON struct {
	Count      uint64            `json:"count"`
	RawMin     [3]int64          `json:"raw_min"`
	RawMax     [3]int64          `json:"raw_max"`
	ByReturn   []uint64          `json:"by_return"`
	ByPulse    []uint64          `json:"by_pulse"`
	ZeroReturn uint64            `json:"zero_return_points,omitempty"`
	Classes    map[string]uint64 `json:"classes,omitempty"`
	Fluff      map[string]string `json:"fluff,omitempty"`
}

type warnJSON struct {
	Family     string `json:"family"`
	Detail     string `json:"detail,omitempty"`
	Declared   string `json:"declared"`
	Derived    string `json:"derived"`
	Repairable bool   `json:"repairable"`
}

type repairJSON struct {
	Patched []string      `json:"patched,omitempty"`
	Skipped []repair.Skip `json:"skipped,omitempty"`
}

type vlrJSON struct {
	UserID      string `json:"user_id"`
	RecordID    uint16 `json:"record_id"`
	Length      uint16 `json:"length"`
	Description string `json:"description,omitempty"`
}

// NewFileReport assembles the structured report for one file. summary,
// discrepancies, and repair sections are optional.
func NewFileReport(path string, h *lasfmt.Header, vlrs []lasio.VLR, res *summary.Result, ds []consistency.Discrepancy, rep *repair.Report) FileReport {
	fr := FileReport{
		Path: path,
		Header: headerJSON{
			Version:          h.Version(),
			FileSourceID:     h.FileSourceID,
			GlobalEncoding:   h.GlobalEncoding,
			GUID:             h.GUID(),
			SystemID:         h.SystemID,
			Software:         h.Software,
			CreationDay:      h.CreationDay,
			CreationYear:     h.CreationYear,
			PointFormat:      h.PointFormat,
			RecordLength:     h.RecordLength,
			PointCountLegacy: h.PointCountLegacy,
			ByReturnLegacy:   h.ByReturnLegacy,
			Scale:            [3]float64{h.ScaleX, h.ScaleY, h.ScaleZ},
			Offset:           [3]float64{h.OffX, h.OffY, h.OffZ},
			Min:              [3]float64{h.MinX, h.MinY, h.MinZ},
			Max:              [3]float64{h.MaxX, h.MaxY, h.MaxZ},
		},
	}
	if h.HasExtendedCounters() {
		fr.Header.PointCountExtended = h.PointCountExtended
		fr.Header.ByReturnExtended = h.ByReturnExtended[:]
	}

	for _, v := range vlrs {
		fr.VLRs = append(fr.VLRs, vlrJSON{
			UserID:      v.UserID,
			RecordID:    v.RecordID,
			Length:      v.Length,
			Description: v.Description,
		})
	}

	if res != nil && !res.Empty() {
		fr.Summary = newSummaryJSON(res)
	}

	for _, d := range ds {
		fr.Warn = append(fr.Warn, warnJSON{
			Family:     d.Family.String(),
			Detail:     d.Detail,
			Declared:   d.Declared,
			Derived:    d.Derived,
			Repairable: d.Repairable,
		})
	}

	if rep != nil {
		fr.Repair = &repairJSON{Patched: rep.Patched, Skipped: rep.Skipped}
	}

	return fr
}

func newSummaryJSON(res *summary.Result) *summaryJSON {
	s := &summaryJSON{
		Count:      res.N,
		RawMin:     [3]int64{res.X.Min, res.Y.Min, res.Z.Min},
		RawMax:     [3]int64{res.X.Max, res.Y.Max, res.Z.Max},
		ByReturn:   res.ByReturn[:],
		ByPulse:    res.ByPulse[:],
		ZeroReturn: res.ZeroReturn,
	}

	s.Classes = map[string]uint64{}
	for code, ct := range res.Classes {
		if ct.Total > 0 {
			s.Classes[fmt.Sprintf("%d", code)] = ct.Total
		}
	}

	s.Fluff = map[string]string{}
	for axis, sev := range map[string]string{
		"x": res.FluffX.String(),
		"y": res.FluffY.String(),
		"z": res.FluffZ.String(),
	} {
		if sev != "none" {
			s.Fluff[axis] = sev
		}
	}
	if len(s.Fluff) == 0 {
		s.Fluff = nil
	}

	return s
}

// JSON marshals the report with indentation for terminal output.
func (fr FileReport) JSON() (string, error) {
	out, err := json.MarshalIndent(fr, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	return string(out) + "\n", nil
}
