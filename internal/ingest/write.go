package ingest

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/faiberforce/dispatch-optimizer/pkg/models"
	"github.com/faiberforce/dispatch-optimizer/pkg/optimizer"
)

const writeTimeLayout = "2006-01-02 15:04:05"

func fmtOptFloat(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func dispatchToRow(d *models.Dispatch) dispatchRow {
	return dispatchRow{
		DispatchID:           d.DispatchID,
		Priority:             string(d.Priority),
		RequiredSkill:        d.RequiredSkill,
		ServiceTier:          d.ServiceTier,
		EquipmentInstalled:   d.EquipmentInstalled,
		FirstTimeFix:         d.FirstTimeFix,
		AppointmentStart:     d.AppointmentStart.Format(writeTimeLayout),
		AppointmentEnd:       d.AppointmentEnd.Format(writeTimeLayout),
		CustomerLat:          d.CustomerLat,
		CustomerLon:          d.CustomerLon,
		City:                 d.City,
		State:                d.State,
		ExpectedDuration:     d.ExpectedDurationMin,
		AssignedTechnicianID: d.AssignedTechnicianID,
	}
}

func technicianToRow(t *models.Technician) technicianRow {
	return technicianRow{
		TechnicianID:       t.TechnicianID,
		PrimarySkill:       t.PrimarySkill,
		TechLat:            t.TechLat,
		TechLon:            t.TechLon,
		City:               t.City,
		State:              t.State,
		WorkloadCapacity:   t.WorkloadCapacity,
		CurrentAssignments: t.CurrentAssignments,
	}
}

func calendarToRow(e *models.CalendarEntry) calendarRow {
	available := "0"
	if e.Available {
		available = "1"
	}
	row := calendarRow{
		TechnicianID:   e.TechnicianID,
		Date:           e.Date.Format("2006-01-02"),
		Available:      available,
		MaxAssignments: e.MaxAssignments,
	}
	if e.Available {
		row.ShiftStart = e.ShiftStart.Format(writeTimeLayout)
		row.ShiftEnd = e.ShiftEnd.Format(writeTimeLayout)
	}
	return row
}

func historyToRow(h *models.HistoricalDispatch) historyRow {
	productive := "0"
	if h.Productive {
		productive = "1"
	}
	return historyRow{
		DispatchID:         h.DispatchID,
		TechnicianID:       h.TechnicianID,
		Priority:           string(h.Priority),
		RequiredSkill:      h.RequiredSkill,
		TechPrimarySkill:   h.TechPrimarySkill,
		ServiceTier:        h.ServiceTier,
		EquipmentInstalled: h.EquipmentInstalled,
		FirstTimeFix:       h.FirstTimeFix,
		AppointmentStart:   h.AppointmentStart.Format(writeTimeLayout),
		AppointmentEnd:     h.AppointmentEnd.Format(writeTimeLayout),
		City:               h.City,
		State:              h.State,
		DistanceKm:         h.DistanceKm,
		WorkloadRatio:      h.WorkloadRatio,
		Productive:         productive,
		ActualDurationMin:  h.ActualDurationMin,
	}
}

// WriteDB materializes the input tables into a SQLite database, in the
// schema Load reads back.
func WriteDB(dbPath string, in optimizer.Inputs) error {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return fmt.Errorf("open %s: %w", dbPath, err)
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	type table struct {
		name    string
		model   interface{}
		rows    func() interface{}
		hasRows bool
	}
	dispatchRows := make([]dispatchRow, 0, len(in.Dispatches))
	for i := range in.Dispatches {
		dispatchRows = append(dispatchRows, dispatchToRow(&in.Dispatches[i]))
	}
	techRows := make([]technicianRow, 0, len(in.Technicians))
	for i := range in.Technicians {
		techRows = append(techRows, technicianToRow(&in.Technicians[i]))
	}
	calRows := make([]calendarRow, 0, len(in.Calendar))
	for i := range in.Calendar {
		calRows = append(calRows, calendarToRow(&in.Calendar[i]))
	}
	histRows := make([]historyRow, 0, len(in.History))
	for i := range in.History {
		histRows = append(histRows, historyToRow(&in.History[i]))
	}

	tables := []table{
		{"dispatches", &dispatchRow{}, func() interface{} { return dispatchRows }, len(dispatchRows) > 0},
		{"technicians", &technicianRow{}, func() interface{} { return techRows }, len(techRows) > 0},
		{"calendar", &calendarRow{}, func() interface{} { return calRows }, len(calRows) > 0},
		{"history", &historyRow{}, func() interface{} { return histRows }, len(histRows) > 0},
	}
	for _, t := range tables {
		if err := db.Table(t.name).AutoMigrate(t.model); err != nil {
			return fmt.Errorf("migrate %s: %w", t.name, err)
		}
		if !t.hasRows {
			continue
		}
		if err := db.Table(t.name).CreateInBatches(t.rows(), 200).Error; err != nil {
			return fmt.Errorf("write %s: %w", t.name, err)
		}
	}
	return nil
}

// WriteCSV materializes the input tables as the CSV fallback files.
func WriteCSV(dir string, in optimizer.Inputs) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	if err := writeCSVFile(filepath.Join(dir, "dispatches.csv"),
		[]string{"dispatch_id", "priority", "required_skill", "service_tier", "equipment_installed",
			"first_time_fix", "appointment_start", "appointment_end", "customer_lat", "customer_lon",
			"city", "state", "expected_duration", "assigned_technician_id"},
		len(in.Dispatches), func(i int) []string {
			r := dispatchToRow(&in.Dispatches[i])
			return []string{r.DispatchID, r.Priority, r.RequiredSkill, r.ServiceTier, r.EquipmentInstalled,
				strconv.FormatFloat(r.FirstTimeFix, 'f', -1, 64), r.AppointmentStart, r.AppointmentEnd,
				fmtOptFloat(r.CustomerLat), fmtOptFloat(r.CustomerLon), r.City, r.State,
				strconv.FormatFloat(r.ExpectedDuration, 'f', -1, 64), r.AssignedTechnicianID}
		}); err != nil {
		return err
	}

	if err := writeCSVFile(filepath.Join(dir, "technicians.csv"),
		[]string{"technician_id", "primary_skill", "tech_lat", "tech_lon", "city", "state",
			"workload_capacity", "current_assignments"},
		len(in.Technicians), func(i int) []string {
			r := technicianToRow(&in.Technicians[i])
			return []string{r.TechnicianID, r.PrimarySkill, fmtOptFloat(r.TechLat), fmtOptFloat(r.TechLon),
				r.City, r.State, strconv.Itoa(r.WorkloadCapacity), strconv.Itoa(r.CurrentAssignments)}
		}); err != nil {
		return err
	}

	if err := writeCSVFile(filepath.Join(dir, "calendar.csv"),
		[]string{"technician_id", "date", "available", "shift_start", "shift_end", "max_assignments"},
		len(in.Calendar), func(i int) []string {
			r := calendarToRow(&in.Calendar[i])
			return []string{r.TechnicianID, r.Date, r.Available, r.ShiftStart, r.ShiftEnd,
				strconv.Itoa(r.MaxAssignments)}
		}); err != nil {
		return err
	}

	return writeCSVFile(filepath.Join(dir, "history.csv"),
		[]string{"dispatch_id", "technician_id", "priority", "required_skill", "tech_primary_skill",
			"service_tier", "equipment_installed", "first_time_fix", "appointment_start", "appointment_end",
			"city", "state", "distance_km", "workload_ratio", "productive", "actual_duration_min"},
		len(in.History), func(i int) []string {
			r := historyToRow(&in.History[i])
			return []string{r.DispatchID, r.TechnicianID, r.Priority, r.RequiredSkill, r.TechPrimarySkill,
				r.ServiceTier, r.EquipmentInstalled, strconv.FormatFloat(r.FirstTimeFix, 'f', -1, 64),
				r.AppointmentStart, r.AppointmentEnd, r.City, r.State,
				fmtOptFloat(r.DistanceKm), fmtOptFloat(r.WorkloadRatio), r.Productive,
				strconv.FormatFloat(r.ActualDurationMin, 'f', -1, 64)}
		})
}

// ExportAssignmentsCSV writes one run's optimized assignment table.
func ExportAssignmentsCSV(path string, res *optimizer.Result) error {
	header := []string{"dispatch_id", "optimized_technician_id", "predicted_success",
		"predicted_duration_min", "distance_km", "skill_match_score", "workload_ratio",
		"score", "fallback_level", "warnings", "optimization_timestamp"}

	rows := make(map[string][]string, len(res.Assignments))
	ts := res.GeneratedAt.Format(writeTimeLayout)
	for i := range res.Assignments {
		a := &res.Assignments[i]
		rows[a.DispatchID] = []string{
			a.DispatchID, a.TechnicianID,
			strconv.FormatFloat(a.PredictedSuccess, 'f', 4, 64),
			strconv.FormatFloat(a.PredictedDurationMin, 'f', 1, 64),
			strconv.FormatFloat(a.DistanceKm, 'f', 2, 64),
			strconv.FormatFloat(a.SkillMatchScore, 'f', 3, 64),
			strconv.FormatFloat(a.WorkloadRatioAfter, 'f', 3, 64),
			strconv.FormatFloat(a.Score, 'f', 4, 64),
			strconv.Itoa(int(a.FallbackLevel)),
			joinWarnings(a.Warnings), ts,
		}
	}
	for _, u := range res.Unassigned {
		rows[u.DispatchID] = []string{u.DispatchID, "", "", "", "", "", "", "", "",
			fmt.Sprintf("unassigned: %s", u.Reason), ts}
	}

	// One row per input dispatch, assigned or not.
	ordered := make([]string, 0, len(res.Deltas))
	for _, d := range res.Deltas {
		if _, ok := rows[d.DispatchID]; ok {
			ordered = append(ordered, d.DispatchID)
		}
	}

	return writeCSVFile(path, header, len(ordered), func(i int) []string {
		return rows[ordered[i]]
	})
}

// ExportWarningsCSV writes one row per assignment warning.
func ExportWarningsCSV(path string, res *optimizer.Result) error {
	type warnRow struct {
		dispatchID string
		techID     string
		level      int
		warning    string
	}
	var rows []warnRow
	for i := range res.Assignments {
		a := &res.Assignments[i]
		for _, w := range a.Warnings {
			rows = append(rows, warnRow{a.DispatchID, a.TechnicianID, int(a.FallbackLevel), w})
		}
	}

	return writeCSVFile(path,
		[]string{"dispatch_id", "technician_id", "fallback_level", "warning"},
		len(rows), func(i int) []string {
			r := rows[i]
			return []string{r.dispatchID, r.techID, strconv.Itoa(r.level), r.warning}
		})
}

func joinWarnings(warnings []string) string {
	out := ""
	for i, w := range warnings {
		if i > 0 {
			out += "; "
		}
		out += w
	}
	return out
}

func writeCSVFile(path string, header []string, n int, row func(int) []string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(header); err != nil {
		return err
	}
	for i := 0; i < n; i++ {
		if err := w.Write(row(i)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
