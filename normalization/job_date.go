package normalization

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"rqmstats/internal/domain/models"
)

// Допустимые диапазоны компонентов даты задания
const (
	minJobYear = 1900
	maxJobYear = 2999
)

// jobDateParseLayout принимает день и месяц из одной или двух цифр
const jobDateParseLayout = "2/1/2006"

// JobDateExample пример корректной даты для сообщений оператору
const JobDateExample = "01/01/2023"

// DateFormatError дата задания не прошла проверку
type DateFormatError struct {
	Input  string
	Reason string
}

func (e *DateFormatError) Error() string {
	return fmt.Sprintf("invalid job date %q (%s): expected dd/mm/yyyy, e.g. %s", e.Input, e.Reason, JobDateExample)
}

// ValidateDate проверяет строку вида D/M/Y: три целых через "/",
// день 1..31, месяц 1..12, год 1900..2999.
// Длина месяца не проверяется, 31/02/2023 считается допустимой.
func ValidateDate(s string) bool {
	_, _, _, ok := splitDate(s)
	return ok
}

func splitDate(s string) (day, month, year int, ok bool) {
	parts := strings.Split(s, "/")
	if len(parts) != 3 {
		return 0, 0, 0, false
	}

	values := make([]int, 3)
	for i, part := range parts {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return 0, 0, 0, false
		}
		values[i] = v
	}

	day, month, year = values[0], values[1], values[2]
	if day < 1 || day > 31 || month < 1 || month > 12 || year < minJobYear || year > maxJobYear {
		return 0, 0, 0, false
	}
	return day, month, year, true
}

// ParseJobDate строгая проверка: ValidateDate плюс существующая календарная дата
func ParseJobDate(s string) (models.JobDate, error) {
	if !ValidateDate(s) {
		return models.JobDate{}, &DateFormatError{Input: s, Reason: "not three numbers in range"}
	}

	t, err := time.Parse(jobDateParseLayout, s)
	if err != nil {
		return models.JobDate{}, &DateFormatError{Input: s, Reason: "not a calendar date"}
	}

	return models.NewJobDate(t.Year(), t.Month(), t.Day()), nil
}

// MustParseJobDate как ParseJobDate, но паникует при ошибке. Для тестов и констант.
func MustParseJobDate(s string) models.JobDate {
	d, err := ParseJobDate(s)
	if err != nil {
		panic(err)
	}
	return d
}
