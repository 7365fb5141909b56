package validation

import (
	"fmt"
)

// ValidResults допустимые коды результата судейства
var ValidResults = map[string]bool{
	"Q":   true, // qualified
	"NQ":  true, // not qualified
	"EX":  true, // excused
	"DQ":  true, // disqualified
	"ABS": true, // absent
}

const (
	// MaxPoints максимально допустимое количество баллов
	MaxPoints = 1000
	// MaxTimeSeconds максимально допустимое время прохождения (1 час)
	MaxTimeSeconds = 3600
)

// ValidateResult проверяет, что код результата входит в список допустимых
func ValidateResult(result string) error {
	if result == "" {
		return fmt.Errorf("result cannot be empty")
	}

	if !ValidResults[result] {
		return fmt.Errorf("invalid result %q: must be one of Q, NQ, EX, DQ, ABS", result)
	}

	return nil
}

// ValidateScore проверяет числовые поля оценки
func ValidateScore(points, timeSeconds float64, faults int) error {
	if points < 0 || points > MaxPoints {
		return fmt.Errorf("points must be between 0 and %d", MaxPoints)
	}

	if timeSeconds < 0 || timeSeconds > MaxTimeSeconds {
		return fmt.Errorf("time must be between 0 and %d seconds", MaxTimeSeconds)
	}

	if faults < 0 {
		return fmt.Errorf("faults cannot be negative")
	}

	return nil
}
