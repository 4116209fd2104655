// Package seed produces synthetic but realistic input data for local
// runs and demos: correlated dispatches, technicians, calendars, and a
// dispatch history the predictors can actually learn from.
package seed

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/faiberforce/dispatch-optimizer/pkg/models"
	"github.com/faiberforce/dispatch-optimizer/pkg/optimizer"
)

// Generator emits reproducible synthetic data for a fixed seed.
type Generator struct {
	rand *rand.Rand
	seed int64
}

func NewGenerator(seed int64) *Generator {
	return &Generator{rand: rand.New(rand.NewSource(seed)), seed: seed}
}

// cityProfile anchors generated coordinates to a real service area.
type cityProfile struct {
	name  string
	state string
	lat   float64
	lon   float64
}

var cities = []cityProfile{
	{"Newark", "NJ", 40.7357, -74.1724},
	{"Jersey City", "NJ", 40.7178, -74.0431},
	{"Paterson", "NJ", 40.9168, -74.1718},
	{"Elizabeth", "NJ", 40.6639, -74.2107},
	{"Edison", "NJ", 40.5187, -74.4121},
	{"Trenton", "NJ", 40.2206, -74.7597},
}

// skillProfile drives duration and success correlations per job type.
type skillProfile struct {
	skill        string
	weight       float64
	meanDuration float64
	stdDuration  float64
	baseSuccess  float64
}

var skillProfiles = []skillProfile{
	{"fiber", 0.30, 95, 25, 0.78},
	{"copper", 0.20, 75, 20, 0.74},
	{"wireless", 0.15, 60, 15, 0.80},
	{"video", 0.15, 70, 20, 0.72},
	{"network", 0.12, 110, 30, 0.70},
	{"electrical", 0.08, 85, 25, 0.68},
}

var serviceTiers = []string{"Basic", "Standard", "Premium"}
var equipmentTypes = []string{"ont", "modem", "gateway", "stb", "none"}

func (g *Generator) pickCity() cityProfile {
	return cities[g.rand.Intn(len(cities))]
}

func (g *Generator) pickSkill() skillProfile {
	r := g.rand.Float64()
	cum := 0.0
	for _, p := range skillProfiles {
		cum += p.weight
		if r < cum {
			return p
		}
	}
	return skillProfiles[len(skillProfiles)-1]
}

func (g *Generator) pickPriority() models.Priority {
	switch r := g.rand.Float64(); {
	case r < 0.05:
		return models.PriorityCritical
	case r < 0.20:
		return models.PriorityHigh
	case r < 0.85:
		return models.PriorityNormal
	default:
		return models.PriorityLow
	}
}

// jitter spreads a point around a city center, roughly within ~8 km.
func (g *Generator) jitter(v float64) float64 {
	return v + g.rand.NormFloat64()*0.04
}

// GenerateTechnicians produces n technicians spread across the service
// areas, with skill mix matching the dispatch mix.
func (g *Generator) GenerateTechnicians(n int) []models.Technician {
	techs := make([]models.Technician, 0, n)
	for i := 0; i < n; i++ {
		city := g.pickCity()
		lat := g.jitter(city.lat)
		lon := g.jitter(city.lon)
		t := models.Technician{
			TechnicianID:       fmt.Sprintf("TECH-%03d", i+1),
			PrimarySkill:       g.pickSkill().skill,
			TechLat:            &lat,
			TechLon:            &lon,
			City:               city.name,
			State:              city.state,
			WorkloadCapacity:   6 + g.rand.Intn(5),
			CurrentAssignments: g.rand.Intn(3),
		}
		techs = append(techs, t)
	}
	return techs
}

// GenerateCalendar produces day-level availability for each technician
// over the given range. Most days are standard shifts, a few are off.
func (g *Generator) GenerateCalendar(techs []models.Technician, start time.Time, days int) []models.CalendarEntry {
	start = start.Truncate(24 * time.Hour)
	entries := make([]models.CalendarEntry, 0, len(techs)*days)
	for _, t := range techs {
		for d := 0; d < days; d++ {
			date := start.AddDate(0, 0, d)
			e := models.CalendarEntry{
				TechnicianID:   t.TechnicianID,
				Date:           date,
				Available:      g.rand.Float64() < 0.92,
				MaxAssignments: 6 + g.rand.Intn(3),
			}
			if e.Available {
				startHour := 8
				if g.rand.Float64() < 0.2 {
					startHour = 7 + g.rand.Intn(3) // 7, 8, or 9
				}
				e.ShiftStart = date.Add(time.Duration(startHour) * time.Hour)
				e.ShiftEnd = e.ShiftStart.Add(9 * time.Hour)
			}
			entries = append(entries, e)
		}
	}
	return entries
}

// GenerateDispatches produces n dispatches for the given service date
// with appointment windows inside business hours. A small share carries
// a pre-existing assignment so baseline comparison has something to
// compare against.
func (g *Generator) GenerateDispatches(n int, date time.Time, techs []models.Technician) []models.Dispatch {
	date = date.Truncate(24 * time.Hour)
	dispatches := make([]models.Dispatch, 0, n)
	for i := 0; i < n; i++ {
		profile := g.pickSkill()
		city := g.pickCity()
		lat := g.jitter(city.lat)
		lon := g.jitter(city.lon)

		startMin := 8*60 + g.rand.Intn(8*60) // 08:00 .. 15:59
		windowMin := 60 + g.rand.Intn(3)*30  // 60, 90, or 120
		start := date.Add(time.Duration(startMin) * time.Minute)

		ftf := 0.0
		if g.rand.Float64() < 0.7 {
			ftf = 1.0
		}

		d := models.Dispatch{
			DispatchID:          fmt.Sprintf("DSP-%04d", i+1),
			Priority:            g.pickPriority(),
			RequiredSkill:       profile.skill,
			ServiceTier:         serviceTiers[g.rand.Intn(len(serviceTiers))],
			EquipmentInstalled:  equipmentTypes[g.rand.Intn(len(equipmentTypes))],
			FirstTimeFix:        ftf,
			AppointmentStart:    start,
			AppointmentEnd:      start.Add(time.Duration(windowMin) * time.Minute),
			CustomerLat:         &lat,
			CustomerLon:         &lon,
			City:                city.name,
			State:               city.state,
			ExpectedDurationMin: clampFloat64(profile.meanDuration+g.rand.NormFloat64()*profile.stdDuration, 20, 240),
		}
		// A handful of unknown locations, as real feeds have.
		if g.rand.Float64() < 0.03 {
			d.CustomerLat, d.CustomerLon = nil, nil
		}
		if len(techs) > 0 && g.rand.Float64() < 0.15 {
			d.AssignedTechnicianID = techs[g.rand.Intn(len(techs))].TechnicianID
		}
		dispatches = append(dispatches, d)
	}
	return dispatches
}

// GenerateHistory produces n completed dispatches over the 180 days
// before end. Outcomes correlate with skill match, distance, and
// workload so trained models pick up real structure.
func (g *Generator) GenerateHistory(n int, end time.Time, techs []models.Technician) []models.HistoricalDispatch {
	if len(techs) == 0 {
		return nil
	}
	history := make([]models.HistoricalDispatch, 0, n)
	for i := 0; i < n; i++ {
		profile := g.pickSkill()
		tech := techs[g.rand.Intn(len(techs))]
		city := g.pickCity()

		daysBack := 1 + g.rand.Intn(180)
		start := end.AddDate(0, 0, -daysBack).Truncate(24 * time.Hour).
			Add(time.Duration(8*60+g.rand.Intn(8*60)) * time.Minute)

		distance := clampFloat64(g.rand.ExpFloat64()*18, 0.2, 180)
		workload := clampFloat64(0.3+g.rand.Float64()*0.8, 0, 1.2)

		successProb := profile.baseSuccess
		if tech.PrimarySkill == profile.skill {
			successProb += 0.10
		} else {
			successProb -= 0.12
		}
		successProb -= distance / 400
		if workload > 0.9 {
			successProb -= 0.08
		}
		successProb = clampFloat64(successProb, 0.05, 0.97)

		duration := clampFloat64(profile.meanDuration+g.rand.NormFloat64()*profile.stdDuration, 15, 300)
		if tech.PrimarySkill != profile.skill {
			duration *= 1.15
		}

		ftf := 0.0
		if g.rand.Float64() < 0.7 {
			ftf = 1.0
		}

		h := models.HistoricalDispatch{
			DispatchID:         fmt.Sprintf("HIST-%05d", i+1),
			TechnicianID:       tech.TechnicianID,
			Priority:           g.pickPriority(),
			RequiredSkill:      profile.skill,
			TechPrimarySkill:   tech.PrimarySkill,
			ServiceTier:        serviceTiers[g.rand.Intn(len(serviceTiers))],
			EquipmentInstalled: equipmentTypes[g.rand.Intn(len(equipmentTypes))],
			FirstTimeFix:       ftf,
			AppointmentStart:   start,
			AppointmentEnd:     start.Add(time.Duration(60+g.rand.Intn(60)) * time.Minute),
			City:               city.name,
			State:              city.state,
			DistanceKm:         &distance,
			WorkloadRatio:      &workload,
			Productive:         g.rand.Float64() < successProb,
			ActualDurationMin:  duration,
		}
		history = append(history, h)
	}
	return history
}

// Generate builds a full coherent input set for one service date.
func (g *Generator) Generate(numDispatches, numTechnicians, historyRows int, serviceDate time.Time) optimizer.Inputs {
	techs := g.GenerateTechnicians(numTechnicians)
	return optimizer.Inputs{
		Technicians: techs,
		Calendar:    g.GenerateCalendar(techs, serviceDate.AddDate(0, 0, -1), 7),
		Dispatches:  g.GenerateDispatches(numDispatches, serviceDate, techs),
		History:     g.GenerateHistory(historyRows, serviceDate, techs),
	}
}

func clampFloat64(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
