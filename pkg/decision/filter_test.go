package decision

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/suite"

	"github.com/faiberforce/dispatch-optimizer/pkg/models"
	"github.com/faiberforce/dispatch-optimizer/pkg/policy"
	"github.com/faiberforce/dispatch-optimizer/pkg/predict"
	"github.com/faiberforce/dispatch-optimizer/pkg/skills"
)

func ptr(v float64) *float64 { return &v }

func testDispatch() models.Dispatch {
	return models.Dispatch{
		DispatchID:          "D1",
		Priority:            models.PriorityNormal,
		RequiredSkill:       "fiber",
		AppointmentStart:    time.Date(2025, 11, 12, 9, 0, 0, 0, time.UTC),
		AppointmentEnd:      time.Date(2025, 11, 12, 10, 0, 0, 0, time.UTC),
		CustomerLat:         ptr(40.00),
		CustomerLon:         ptr(-74.00),
		City:                "Newark",
		State:               "NJ",
		ExpectedDurationMin: 60,
	}
}

func testTechnician(id string) models.Technician {
	return models.Technician{
		TechnicianID:     id,
		PrimarySkill:     "fiber",
		TechLat:          ptr(40.01),
		TechLon:          ptr(-74.01),
		City:             "Newark",
		State:            "NJ",
		WorkloadCapacity: 8,
	}
}

func availableAllDay(techID string, date time.Time) models.CalendarEntry {
	return models.CalendarEntry{
		TechnicianID:   techID,
		Date:           date,
		Available:      true,
		ShiftStart:     date.Add(8 * time.Hour),
		ShiftEnd:       date.Add(17 * time.Hour),
		MaxAssignments: 8,
	}
}

type FilterTestSuite struct {
	suite.Suite
	rc *RunContext
}

func (s *FilterTestSuite) SetupTest() {
	table := skills.NewTable(zerolog.Nop())
	s.rc = &RunContext{
		RunID:  "test-run",
		Policy: policy.Decision{Thresholds: policy.Thresholds{MinSuccess: 0.27, MaxCapacity: 1.12}},
		Config: DefaultConfig(),
		Skills: table,
		Success: predict.NewSuccessModel(predict.DefaultSuccessConfig(), zerolog.Nop()),
		Duration: predict.NewDurationModel(predict.DefaultDurationConfig(), zerolog.Nop()),
		Calendar: models.NewCalendar([]models.CalendarEntry{
			availableAllDay("T1", time.Date(2025, 11, 12, 0, 0, 0, 0, time.UTC)),
		}),
	}
}

func (s *FilterTestSuite) TestLevelSettingsLadder() {
	l0 := s.rc.LevelSettings(models.FallbackStrict)
	s.Equal(30.0, l0.OverlapBufferMin)
	s.Equal(2, l0.MaxConcurrent)
	s.False(l0.AllowOvertime)
	s.True(l0.ApplyMinSuccess)

	l1 := s.rc.LevelSettings(models.FallbackShortBuffer)
	s.Equal(15.0, l1.OverlapBufferMin)

	l2 := s.rc.LevelSettings(models.FallbackZeroBuffer)
	s.Equal(0.0, l2.OverlapBufferMin)

	l3 := s.rc.LevelSettings(models.FallbackConcurrent)
	s.Equal(3, l3.MaxConcurrent)

	l4 := s.rc.LevelSettings(models.FallbackOvertime)
	s.True(l4.AllowOvertime)

	l6 := s.rc.LevelSettings(models.FallbackForced)
	s.True(l6.Forced)
	s.False(l6.ApplyMinSuccess)
}

func (s *FilterTestSuite) TestHardCalendarFilter() {
	d := testDispatch()
	techs := []models.Technician{testTechnician("T1"), testTechnician("T2")}
	counts := func(string) int { return 0 }

	// T2 has no calendar entry; it must be cut at every rung.
	for level := models.FallbackStrict; level <= models.FallbackForced; level++ {
		pool, diags := s.rc.EligibleTechnicians(&d, techs, counts, s.rc.LevelSettings(level))
		s.Len(pool, 1, "level %d", level)
		s.Equal("T1", pool[0].TechnicianID)
		s.Equal(1, diags.NoCalendar)
	}
}

func (s *FilterTestSuite) TestHardDistanceFilter() {
	d := testDispatch()
	far := testTechnician("T-far")
	far.TechLat = ptr(45.00) // several hundred km away
	s.rc.Calendar = models.NewCalendar([]models.CalendarEntry{
		availableAllDay("T-far", time.Date(2025, 11, 12, 0, 0, 0, 0, time.UTC)),
	})

	for level := models.FallbackStrict; level <= models.FallbackForced; level++ {
		pool, diags := s.rc.EligibleTechnicians(&d, []models.Technician{far}, func(string) int { return 0 }, s.rc.LevelSettings(level))
		s.Empty(pool, "level %d", level)
		s.Equal(1, diags.DistanceCut)
		s.Equal(models.ReasonDistanceFilter, diags.Reason())
	}
}

func (s *FilterTestSuite) TestUnknownDistanceIsCut() {
	d := testDispatch()
	tech := testTechnician("T1")
	tech.TechLat = nil

	pool, diags := s.rc.EligibleTechnicians(&d, []models.Technician{tech}, func(string) int { return 0 }, s.rc.LevelSettings(models.FallbackStrict))
	s.Empty(pool)
	s.Equal(1, diags.DistanceCut)
}

func (s *FilterTestSuite) TestCityStrictByDefault() {
	d := testDispatch()
	tech := testTechnician("T1")
	tech.City = "Trenton"

	pool, diags := s.rc.EligibleTechnicians(&d, []models.Technician{tech}, func(string) int { return 0 }, s.rc.LevelSettings(models.FallbackStrict))
	s.Empty(pool)
	s.Equal(1, diags.CityMismatch)
	s.Equal(models.ReasonNoCityTech, diags.Reason())

	// The forced rung relaxes geography to state level.
	pool, _ = s.rc.EligibleTechnicians(&d, []models.Technician{tech}, func(string) int { return 0 }, s.rc.LevelSettings(models.FallbackForced))
	s.Len(pool, 1)
}

func (s *FilterTestSuite) TestCrossCityFlag() {
	d := testDispatch()
	tech := testTechnician("T1")
	tech.City = "Trenton"

	s.rc.Config.AllowCrossCity = true
	pool, _ := s.rc.EligibleTechnicians(&d, []models.Technician{tech}, func(string) int { return 0 }, s.rc.LevelSettings(models.FallbackStrict))
	s.Len(pool, 1)
}

func (s *FilterTestSuite) TestCapacityGate() {
	d := testDispatch() // Normal priority
	tech := testTechnician("T1")

	// 8 of 8 assigned: ratio after would be 1.125.
	counts := func(string) int { return 8 }
	pool, diags := s.rc.EligibleTechnicians(&d, []models.Technician{tech}, counts, s.rc.LevelSettings(models.FallbackStrict))
	s.Empty(pool)
	s.Equal(1, diags.OverCapacity)
	s.Equal(models.ReasonAllOvercap, diags.Reason())

	// Capacity 10 with 10 assigned: after = 1.10, allowed only from
	// the over-capacity rung onward for Normal priority.
	tech.WorkloadCapacity = 10
	counts = func(string) int { return 10 }
	pool, _ = s.rc.EligibleTechnicians(&d, []models.Technician{tech}, counts, s.rc.LevelSettings(models.FallbackStrict))
	s.Empty(pool)
	pool, _ = s.rc.EligibleTechnicians(&d, []models.Technician{tech}, counts, s.rc.LevelSettings(models.FallbackOverCapacity))
	s.Len(pool, 1)
}

func (s *FilterTestSuite) TestCriticalMayExceedFullLoad() {
	d := testDispatch()
	d.Priority = models.PriorityCritical
	tech := testTechnician("T1")
	tech.WorkloadCapacity = 10

	// after = 1.10 <= policy cap 1.12: Critical passes below the
	// over-capacity rung.
	pool, _ := s.rc.EligibleTechnicians(&d, []models.Technician{tech}, func(string) int { return 10 }, s.rc.LevelSettings(models.FallbackStrict))
	s.Len(pool, 1)
}

func (s *FilterTestSuite) TestAbsoluteCeilingHoldsEvenForced() {
	d := testDispatch()
	tech := testTechnician("T1")
	tech.WorkloadCapacity = 4

	// after = 6/4 = 1.5 > 1.20: cut even at the forced rung.
	pool, _ := s.rc.EligibleTechnicians(&d, []models.Technician{tech}, func(string) int { return 5 }, s.rc.LevelSettings(models.FallbackForced))
	s.Empty(pool)
}

func (s *FilterTestSuite) TestSkillCascade() {
	s.rc.Config.UseSkillCascade = true
	s.rc.Config.SkillCategories = map[string][]string{
		"connectivity": {"fiber", "copper"},
		"video":        {"iptv"},
	}
	s.rc.Config.RelatedCategories = map[string][]string{
		"connectivity": {"video"},
	}
	date := time.Date(2025, 11, 12, 0, 0, 0, 0, time.UTC)

	fiber := testTechnician("T-fiber")
	copper := testTechnician("T-copper")
	copper.PrimarySkill = "copper"
	iptv := testTechnician("T-iptv")
	iptv.PrimarySkill = "iptv"
	s.rc.Calendar = models.NewCalendar([]models.CalendarEntry{
		availableAllDay("T-fiber", date),
		availableAllDay("T-copper", date),
		availableAllDay("T-iptv", date),
	})

	d := testDispatch()
	counts := func(string) int { return 0 }
	settings := s.rc.LevelSettings(models.FallbackStrict)

	// Exact match present: only the fiber technician survives.
	pool, diags := s.rc.EligibleTechnicians(&d, []models.Technician{fiber, copper, iptv}, counts, settings)
	s.Len(pool, 1)
	s.Equal("exact", diags.CascadeLevel)
	s.Equal(1.0, diags.CascadeMultiplier)

	// No exact match: same category wins with its discount.
	pool, diags = s.rc.EligibleTechnicians(&d, []models.Technician{copper, iptv}, counts, settings)
	s.Len(pool, 1)
	s.Equal("T-copper", pool[0].TechnicianID)
	s.Equal("category", diags.CascadeLevel)
	s.Equal(0.85, diags.CascadeMultiplier)

	// Only a related category remains.
	pool, diags = s.rc.EligibleTechnicians(&d, []models.Technician{iptv}, counts, settings)
	s.Len(pool, 1)
	s.Equal("related", diags.CascadeLevel)
	s.Equal(0.70, diags.CascadeMultiplier)
}

func (s *FilterTestSuite) TestScoreCandidatesKeepsOrder() {
	d := testDispatch()
	t1 := testTechnician("T1")
	t2 := testTechnician("T2")
	t2.TechLat = ptr(40.05)

	candidates, err := s.rc.ScoreCandidates(context.Background(), &d, []models.Technician{t1, t2}, func(string) int { return 0 })
	s.Require().NoError(err)
	s.Require().Len(candidates, 2)
	s.Equal("T1", candidates[0].Technician.TechnicianID)
	s.Equal("T2", candidates[1].Technician.TechnicianID)
	s.True(candidates[0].DistanceKnown)
	s.Greater(candidates[1].DistanceKm, candidates[0].DistanceKm)
}

func TestFilterTestSuite(t *testing.T) {
	suite.Run(t, new(FilterTestSuite))
}
