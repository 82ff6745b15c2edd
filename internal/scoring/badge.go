package scoring

// Level is the colour band of a score.
type Level string

// Score bands, best first.
const (
	LevelGood     Level = "good"
	LevelFair     Level = "fair"
	LevelPoor     Level = "poor"
	LevelCritical Level = "critical"
)

// Band thresholds shared by the report page and the dashboard.
const (
	GoodThreshold = 85.0
	FairThreshold = 70.0
	PoorThreshold = 55.0
)

// BadgeLevel returns the band of a score.
func BadgeLevel(score float64) Level {
	switch {
	case score >= GoodThreshold:
		return LevelGood
	case score >= FairThreshold:
		return LevelFair
	case score >= PoorThreshold:
		return LevelPoor
	default:
		return LevelCritical
	}
}

// BadgeColor returns the CSS colour of a score badge.
func BadgeColor(score float64) string {
	switch BadgeLevel(score) {
	case LevelGood:
		return "#067d68"
	case LevelFair:
		return "#c3a000"
	case LevelPoor:
		return "#d35400"
	default:
		return "#b00020"
	}
}
