package ingest

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/faiberforce/dispatch-optimizer/pkg/models"
	"github.com/faiberforce/dispatch-optimizer/pkg/optimizer"
)

// Load reads the four input tables. The database is the primary
// source; when it cannot be opened or read and a CSV directory is
// configured, ingest falls back to the equivalent CSV files.
func Load(dbPath, csvDir string, log zerolog.Logger) (optimizer.Inputs, error) {
	if dbPath != "" {
		in, err := loadFromDB(dbPath, log)
		if err == nil {
			return in, nil
		}
		if csvDir == "" {
			return optimizer.Inputs{}, fmt.Errorf("database ingest failed: %w", err)
		}
		log.Warn().Err(err).Str("csv_dir", csvDir).Msg("database ingest failed, falling back to CSV")
	}
	if csvDir == "" {
		return optimizer.Inputs{}, fmt.Errorf("no input source configured")
	}
	return loadFromCSV(csvDir, log)
}

func loadFromDB(dbPath string, log zerolog.Logger) (optimizer.Inputs, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return optimizer.Inputs{}, fmt.Errorf("open %s: %w", dbPath, err)
	}
	defer func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}()

	var in optimizer.Inputs

	var dispatchRows []dispatchRow
	if err := db.Table("dispatches").Find(&dispatchRows).Error; err != nil {
		return optimizer.Inputs{}, fmt.Errorf("read dispatches: %w", err)
	}
	if in.Dispatches, err = convertDispatches(dispatchRows); err != nil {
		return optimizer.Inputs{}, err
	}

	var techRows []technicianRow
	if err := db.Table("technicians").Find(&techRows).Error; err != nil {
		return optimizer.Inputs{}, fmt.Errorf("read technicians: %w", err)
	}
	if in.Technicians, err = convertTechnicians(techRows); err != nil {
		return optimizer.Inputs{}, err
	}

	var calRows []calendarRow
	if err := db.Table("calendar").Find(&calRows).Error; err != nil {
		return optimizer.Inputs{}, fmt.Errorf("read calendar: %w", err)
	}
	if in.Calendar, err = convertCalendar(calRows); err != nil {
		return optimizer.Inputs{}, err
	}

	var histRows []historyRow
	if err := db.Table("history").Find(&histRows).Error; err != nil {
		log.Warn().Err(err).Msg("history table unavailable, predictors will degrade")
	} else if in.History, err = convertHistory(histRows); err != nil {
		return optimizer.Inputs{}, err
	}

	log.Info().
		Str("source", dbPath).
		Int("dispatches", len(in.Dispatches)).
		Int("technicians", len(in.Technicians)).
		Int("calendar_entries", len(in.Calendar)).
		Int("history_rows", len(in.History)).
		Msg("ingest complete")
	return in, nil
}

func loadFromCSV(dir string, log zerolog.Logger) (optimizer.Inputs, error) {
	var in optimizer.Inputs
	var err error

	if in.Dispatches, err = readDispatchesCSV(filepath.Join(dir, "dispatches.csv")); err != nil {
		return optimizer.Inputs{}, err
	}
	if in.Technicians, err = readTechniciansCSV(filepath.Join(dir, "technicians.csv")); err != nil {
		return optimizer.Inputs{}, err
	}
	if in.Calendar, err = readCalendarCSV(filepath.Join(dir, "calendar.csv")); err != nil {
		return optimizer.Inputs{}, err
	}
	if in.History, err = readHistoryCSV(filepath.Join(dir, "history.csv")); err != nil {
		// History is optional; training degrades without it.
		log.Warn().Err(err).Msg("history.csv unavailable, predictors will degrade")
		in.History = nil
	}

	log.Info().
		Str("source", dir).
		Int("dispatches", len(in.Dispatches)).
		Int("technicians", len(in.Technicians)).
		Int("calendar_entries", len(in.Calendar)).
		Int("history_rows", len(in.History)).
		Msg("ingest complete")
	return in, nil
}

func convertDispatches(rows []dispatchRow) ([]models.Dispatch, error) {
	out := make([]models.Dispatch, 0, len(rows))
	for i := range rows {
		d, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, nil
}

func convertTechnicians(rows []technicianRow) ([]models.Technician, error) {
	out := make([]models.Technician, 0, len(rows))
	for i := range rows {
		t, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, nil
}

func convertCalendar(rows []calendarRow) ([]models.CalendarEntry, error) {
	out := make([]models.CalendarEntry, 0, len(rows))
	for i := range rows {
		e, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func convertHistory(rows []historyRow) ([]models.HistoricalDispatch, error) {
	out := make([]models.HistoricalDispatch, 0, len(rows))
	for i := range rows {
		h, err := rows[i].toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, nil
}
