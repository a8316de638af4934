package service

import (
	"strings"

	"penzi/internal/model"
)

// CompatibilityScore is a display-only heuristic in [0,100]. Age closeness
// and location always count; education and religion only count when both
// profiles have them. The result is the truncated mean of counted factors,
// and it is symmetric in its arguments.
func CompatibilityScore(a, b *model.User) int {
	score := 0
	factors := 0

	ageDiff := a.Age - b.Age
	if ageDiff < 0 {
		ageDiff = -ageDiff
	}
	ageScore := 100 - ageDiff*10
	if ageScore < 0 {
		ageScore = 0
	}
	score += ageScore
	factors++

	switch {
	case sameFold(a.County, b.County):
		score += 100
	case sameFold(a.Town, b.Town):
		score += 80
	}
	factors++

	if a.LevelOfEducation != "" && b.LevelOfEducation != "" {
		if sameFold(a.LevelOfEducation, b.LevelOfEducation) {
			score += 70
		}
		factors++
	}

	if a.Religion != "" && b.Religion != "" {
		if sameFold(a.Religion, b.Religion) {
			score += 60
		}
		factors++
	}

	if factors == 0 {
		return 50
	}
	result := score / factors
	if result > 100 {
		result = 100
	}
	return result
}

func sameFold(a, b string) bool {
	return a != "" && b != "" && strings.EqualFold(a, b)
}
