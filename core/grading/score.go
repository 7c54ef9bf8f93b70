package grading

// Composite score weights: attendance 30%, aptitude 30%, subject exams 40%.
const (
	attendanceWeight = 30.0
	aptitudeWeight   = 0.3
	subjectWeight    = 40.0
	aptitudeBase     = 100.0
	passingGrade     = 75.0
)

// transmutationBands maps a 0-100 final grade onto the 1.00-5.00 academic
// scale. Bands are checked top-down; anything below the pass line maps
// to 5.00. Higher final grades never yield a worse transmuted value.
var transmutationBands = []struct {
	floor      float64
	transmuted float64
}{
	{97, 1.00},
	{94, 1.25},
	{91, 1.50},
	{88, 1.75},
	{85, 2.00},
	{82, 2.25},
	{79, 2.50},
	{76, 2.75},
	{passingGrade, 3.00},
}

type ScoreInputs struct {
	AttendancePresent int
	TotalTrainingDays int
	MeritPoints       int
	DemeritPoints     int
	PrelimScore       float64
	MidtermScore      float64
	FinalScore        float64
	Status            GradeStatus
}

type ScoreBreakdown struct {
	AttendanceScore float64 `json:"attendance_score"`
	AptitudeScore   float64 `json:"aptitude_score"`
	SubjectScore    float64 `json:"subject_score"`
	FinalGrade      float64 `json:"final_grade"`
	// Transmuted is 0 when the status short-circuits to a non-numeric remark.
	Transmuted float64 `json:"transmuted,omitempty"`
	Remark     string  `json:"remark"`
	Passed     bool    `json:"passed"`
}

// ComputeScore derives a cadet's composite score from its stored inputs.
// Pure: no database reads or writes.
func ComputeScore(in ScoreInputs) ScoreBreakdown {
	var bd ScoreBreakdown

	if in.TotalTrainingDays > 0 {
		present := in.AttendancePresent
		if present > in.TotalTrainingDays {
			present = in.TotalTrainingDays
		}
		bd.AttendanceScore = float64(present) / float64(in.TotalTrainingDays) * attendanceWeight
	}

	rawAptitude := clamp(aptitudeBase+float64(in.MeritPoints)-float64(in.DemeritPoints), 0, 100)
	bd.AptitudeScore = rawAptitude * aptitudeWeight

	bd.SubjectScore = (clamp(in.PrelimScore, 0, 100) + clamp(in.MidtermScore, 0, 100) + clamp(in.FinalScore, 0, 100)) / 300 * subjectWeight

	bd.FinalGrade = clamp(bd.AttendanceScore+bd.AptitudeScore+bd.SubjectScore, 0, 100)

	// Special lifecycle statuses short-circuit to a non-numeric remark.
	if remark, ok := statusRemarks[in.Status]; ok {
		bd.Remark = remark
		return bd
	}

	bd.Transmuted, bd.Passed = transmute(bd.FinalGrade)
	if bd.Passed {
		bd.Remark = "Passed"
	} else {
		bd.Remark = "Failed"
	}
	return bd
}

func transmute(finalGrade float64) (float64, bool) {
	for _, band := range transmutationBands {
		if finalGrade >= band.floor {
			return band.transmuted, true
		}
	}
	return 5.00, false
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
