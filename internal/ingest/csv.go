package ingest

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/faiberforce/dispatch-optimizer/pkg/models"
)

// csvTable is a parsed CSV file with a header index.
type csvTable struct {
	path    string
	index   map[string]int
	records [][]string
}

func readCSVTable(path string) (*csvTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: empty file", path)
	}

	index := make(map[string]int, len(rows[0]))
	for i, name := range rows[0] {
		index[strings.ToLower(strings.TrimSpace(name))] = i
	}
	return &csvTable{path: path, index: index, records: rows[1:]}, nil
}

// require fails fast on missing columns so the error names the file
// and every absent column at once.
func (t *csvTable) require(columns ...string) error {
	var missing []string
	for _, c := range columns {
		if _, ok := t.index[c]; !ok {
			missing = append(missing, c)
		}
	}
	if len(missing) > 0 {
		return fmt.Errorf("%s: missing required columns: %s", t.path, strings.Join(missing, ", "))
	}
	return nil
}

func (t *csvTable) get(record []string, column string) string {
	i, ok := t.index[column]
	if !ok || i >= len(record) {
		return ""
	}
	return record[i]
}

func (t *csvTable) getFloat(record []string, column string) (float64, error) {
	v, err := parseFloat(t.get(record, column))
	if err != nil {
		return 0, fmt.Errorf("%s: column %s: %w", t.path, column, err)
	}
	return v, nil
}

func (t *csvTable) getOptFloat(record []string, column string) (*float64, error) {
	v, err := parseOptFloat(t.get(record, column))
	if err != nil {
		return nil, fmt.Errorf("%s: column %s: %w", t.path, column, err)
	}
	return v, nil
}

func (t *csvTable) getInt(record []string, column string) (int, error) {
	s := strings.TrimSpace(t.get(record, column))
	if s == "" {
		return 0, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%s: column %s: %w", t.path, column, err)
	}
	return v, nil
}

func readDispatchesCSV(path string) ([]models.Dispatch, error) {
	table, err := readCSVTable(path)
	if err != nil {
		return nil, err
	}
	if err := table.require("dispatch_id", "priority", "required_skill",
		"appointment_start", "appointment_end", "state", "expected_duration"); err != nil {
		return nil, err
	}

	rows := make([]dispatchRow, 0, len(table.records))
	for _, rec := range table.records {
		row := dispatchRow{
			DispatchID:           table.get(rec, "dispatch_id"),
			Priority:             table.get(rec, "priority"),
			RequiredSkill:        table.get(rec, "required_skill"),
			ServiceTier:          table.get(rec, "service_tier"),
			EquipmentInstalled:   table.get(rec, "equipment_installed"),
			AppointmentStart:     table.get(rec, "appointment_start"),
			AppointmentEnd:       table.get(rec, "appointment_end"),
			City:                 table.get(rec, "city"),
			State:                table.get(rec, "state"),
			AssignedTechnicianID: table.get(rec, "assigned_technician_id"),
		}
		if row.FirstTimeFix, err = table.getFloat(rec, "first_time_fix"); err != nil {
			return nil, err
		}
		if row.CustomerLat, err = table.getOptFloat(rec, "customer_lat"); err != nil {
			return nil, err
		}
		if row.CustomerLon, err = table.getOptFloat(rec, "customer_lon"); err != nil {
			return nil, err
		}
		if row.ExpectedDuration, err = table.getFloat(rec, "expected_duration"); err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return convertDispatches(rows)
}

func readTechniciansCSV(path string) ([]models.Technician, error) {
	table, err := readCSVTable(path)
	if err != nil {
		return nil, err
	}
	if err := table.require("technician_id", "primary_skill", "state", "workload_capacity"); err != nil {
		return nil, err
	}

	rows := make([]technicianRow, 0, len(table.records))
	for _, rec := range table.records {
		row := technicianRow{
			TechnicianID: table.get(rec, "technician_id"),
			PrimarySkill: table.get(rec, "primary_skill"),
			City:         table.get(rec, "city"),
			State:        table.get(rec, "state"),
		}
		if row.TechLat, err = table.getOptFloat(rec, "tech_lat"); err != nil {
			return nil, err
		}
		if row.TechLon, err = table.getOptFloat(rec, "tech_lon"); err != nil {
			return nil, err
		}
		if row.WorkloadCapacity, err = table.getInt(rec, "workload_capacity"); err != nil {
			return nil, err
		}
		if row.CurrentAssignments, err = table.getInt(rec, "current_assignments"); err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return convertTechnicians(rows)
}

func readCalendarCSV(path string) ([]models.CalendarEntry, error) {
	table, err := readCSVTable(path)
	if err != nil {
		return nil, err
	}
	if err := table.require("technician_id", "date", "available", "shift_start", "shift_end"); err != nil {
		return nil, err
	}

	rows := make([]calendarRow, 0, len(table.records))
	for _, rec := range table.records {
		row := calendarRow{
			TechnicianID: table.get(rec, "technician_id"),
			Date:         table.get(rec, "date"),
			Available:    table.get(rec, "available"),
			ShiftStart:   table.get(rec, "shift_start"),
			ShiftEnd:     table.get(rec, "shift_end"),
		}
		if row.MaxAssignments, err = table.getInt(rec, "max_assignments"); err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return convertCalendar(rows)
}

func readHistoryCSV(path string) ([]models.HistoricalDispatch, error) {
	table, err := readCSVTable(path)
	if err != nil {
		return nil, err
	}
	if err := table.require("dispatch_id", "technician_id", "appointment_start", "productive", "actual_duration_min"); err != nil {
		return nil, err
	}

	rows := make([]historyRow, 0, len(table.records))
	for _, rec := range table.records {
		row := historyRow{
			DispatchID:         table.get(rec, "dispatch_id"),
			TechnicianID:       table.get(rec, "technician_id"),
			Priority:           table.get(rec, "priority"),
			RequiredSkill:      table.get(rec, "required_skill"),
			TechPrimarySkill:   table.get(rec, "tech_primary_skill"),
			ServiceTier:        table.get(rec, "service_tier"),
			EquipmentInstalled: table.get(rec, "equipment_installed"),
			AppointmentStart:   table.get(rec, "appointment_start"),
			AppointmentEnd:     table.get(rec, "appointment_end"),
			City:               table.get(rec, "city"),
			State:              table.get(rec, "state"),
			Productive:         table.get(rec, "productive"),
		}
		if row.FirstTimeFix, err = table.getFloat(rec, "first_time_fix"); err != nil {
			return nil, err
		}
		if row.DistanceKm, err = table.getOptFloat(rec, "distance_km"); err != nil {
			return nil, err
		}
		if row.WorkloadRatio, err = table.getOptFloat(rec, "workload_ratio"); err != nil {
			return nil, err
		}
		if row.ActualDurationMin, err = table.getFloat(rec, "actual_duration_min"); err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return convertHistory(rows)
}
