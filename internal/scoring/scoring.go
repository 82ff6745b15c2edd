package scoring

import (
	"math"
	"regexp"
	"strings"

	"github.com/nao1215/socaudit/internal/model"
)

// Penalty weights and caps per severity word.
const (
	criticalWeight = 25
	criticalCap    = 60
	highWeight     = 15
	highCap        = 45
	mediumWeight   = 7
	mediumCap      = 35
	lowWeight      = 2
	lowCap         = 10
)

// Weights of the blended score.
const (
	severityShare = 0.6
	gradeShare    = 0.4
)

var severityPatterns = map[model.Severity]*regexp.Regexp{
	model.SeverityCritical: regexp.MustCompile(`(?i)\bcritical\b`),
	model.SeverityHigh:     regexp.MustCompile(`(?i)\bhigh\b`),
	model.SeverityMedium:   regexp.MustCompile(`(?i)\bmedium\b`),
	model.SeverityLow:      regexp.MustCompile(`(?i)\blow\b`),
}

var gradePattern = regexp.MustCompile(`(?i)\b(self[-\s]?grade|grade)\s*[:\-]\s*([ABCDEF])\b`)

var metadataPattern = regexp.MustCompile(`(?m)^#{1,6}[ \t]+` + regexp.QuoteMeta(model.MetadataHeading) + `[ \t]*$`)

var gradeScores = map[string]float64{
	"A": 95,
	"B": 85,
	"C": 75,
	"D": 60,
	"E": 40,
	"F": 40,
}

// CountSeverities counts whole-word, case-insensitive occurrences of each
// severity word in text.
func CountSeverities(text string) model.SeverityCounts {
	count := func(s model.Severity) int {
		return len(severityPatterns[s].FindAllStringIndex(text, -1))
	}
	return model.SeverityCounts{
		Critical: count(model.SeverityCritical),
		High:     count(model.SeverityHigh),
		Medium:   count(model.SeverityMedium),
		Low:      count(model.SeverityLow),
	}
}

// SelfGrade returns the first letter grade found in text, upper-cased,
// or "" when there is none.
func SelfGrade(text string) string {
	m := gradePattern.FindStringSubmatch(text)
	if m == nil {
		return ""
	}
	return strings.ToUpper(m[2])
}

// SelfGradeScore maps the first letter grade in text to a score.
// It returns model.NoGrade when text has no grade.
func SelfGradeScore(text string) float64 {
	grade := SelfGrade(text)
	if grade == "" {
		return model.NoGrade
	}
	return gradeScores[grade]
}

// SeverityPenaltyScore subtracts capped per-severity penalties from 100.
// The result is clamped to [1, 100].
func SeverityPenaltyScore(c model.SeverityCounts) float64 {
	penalty := min(criticalWeight*c.Critical, criticalCap) +
		min(highWeight*c.High, highCap) +
		min(mediumWeight*c.Medium, mediumCap) +
		min(lowWeight*c.Low, lowCap)

	return float64(max(1, min(100, 100-penalty)))
}

// CombineScores blends the severity score with the self-grade score.
// Without a grade the severity score is used alone. Results are rounded
// to one decimal place.
func CombineScores(gradeScore, severityScore float64) float64 {
	if gradeScore < 0 {
		return round1(severityScore)
	}
	return round1(severityShare*severityScore + gradeShare*gradeScore)
}

// AnalysisText returns text up to the collection metadata heading, or all of
// text when it has no appendix.
func AnalysisText(text string) string {
	if loc := metadataPattern.FindStringIndex(text); loc != nil {
		return text[:loc[0]]
	}
	return text
}

// Compute scores a report. The collection metadata appendix is not scored.
func Compute(text string) model.ScoreCard {
	text = AnalysisText(text)
	counts := CountSeverities(text)
	grade := SelfGradeScore(text)
	sev := SeverityPenaltyScore(counts)
	return model.ScoreCard{
		Severity:       counts,
		SelfGradeScore: grade,
		SeverityScore:  sev,
		FinalScore:     CombineScores(grade, sev),
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
