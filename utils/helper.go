package utils

import (
	"bytes"
	"errors"
	"regexp"
	"text/template"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/ttacon/libphonenumber"
)

func IsValidEmail(email string) bool {
	emailRegex := regexp.MustCompile(`^[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}$`)
	return emailRegex.MatchString(email)
}

func ValidatePhoneNumber(phoneNumber, countryCode string) error {
	num, err := libphonenumber.Parse(phoneNumber, countryCode)
	if err != nil {
		return err
	}
	if !libphonenumber.IsValidNumber(num) {
		return ErrorRecordNotFound
	}
	return nil
}

func GenerateUniqueFilename() string {
	return uuid.NewString()
}

// ProcessValidationErrors flattens validator errors into field:tag pairs for API responses.
func ProcessValidationErrors(err error) map[string]string {
	errorsMap := make(map[string]string)
	if validationErrors, ok := err.(validator.ValidationErrors); ok {
		for _, fieldError := range validationErrors {
			errorsMap[fieldError.Field()] = fieldError.Tag()
		}
	}
	return errorsMap
}

func NewTrue() *bool {
	b := true
	return &b
}

func NewFalse() *bool {
	b := false
	return &b
}

func NewInt(i int) *int {
	return &i
}

func UniqueSlice[T comparable](slice []T) []T {
	seen := make(map[T]bool, len(slice))
	result := make([]T, 0, len(slice))
	for _, v := range slice {
		if !seen[v] {
			seen[v] = true
			result = append(result, v)
		}
	}
	return result
}

func DereferencePtr[T any](ptr *T, defaults ...T) T {
	if ptr != nil {
		return *ptr
	}
	if len(defaults) > 0 {
		return defaults[0]
	}
	var zero T
	return zero
}

func NilIfEmpty[T comparable](v T) *T {
	var zero T
	if v == zero {
		return nil
	}
	return &v
}

// ExecTemplate renders a SQL text template for queries with optional clauses.
func ExecTemplate(tString string, data map[string]interface{}) (string, error) {
	t, err := template.New("sql").Parse(tString)
	if err != nil {
		return "", errors.New("error parsing sql template: " + err.Error())
	}
	var b bytes.Buffer
	if err := t.Execute(&b, data); err != nil {
		return "", errors.New("failed to execute sql template: " + err.Error())
	}
	return b.String(), nil
}

/* date arithmetic */

// TruncateToDay drops the time-of-day component (UTC).
func TruncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// LastDayOfMonth returns the number of days in the given month.
func LastDayOfMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// ClampDayToMonth builds a date for the given year/month using dayOfMonth,
// clamped to the month's last day when the month is shorter (e.g. day 31 in
// February resolves to Feb 28/29).
func ClampDayToMonth(year int, month time.Month, dayOfMonth int) time.Time {
	last := LastDayOfMonth(year, month)
	if dayOfMonth > last {
		dayOfMonth = last
	}
	if dayOfMonth < 1 {
		dayOfMonth = 1
	}
	return time.Date(year, month, dayOfMonth, 0, 0, 0, 0, time.UTC)
}

// AddMonthsClamped advances a date by n months keeping the anchor day-of-month,
// clamping into shorter months instead of letting time.AddDate roll over
// (Jan 31 + 1 month must be Feb 28/29, not Mar 2/3).
func AddMonthsClamped(t time.Time, n int, anchorDay int) time.Time {
	year, month := t.Year(), t.Month()
	total := int(month) - 1 + n
	year += total / 12
	month = time.Month(total%12 + 1)
	if total%12 < 0 {
		// Go's modulo keeps the sign of the dividend.
		year--
		month += 12
	}
	return ClampDayToMonth(year, month, anchorDay)
}

// DaysBetween returns the whole-day difference to - from, after truncating
// both to midnight. Negative when `to` precedes `from`.
func DaysBetween(from, to time.Time) int {
	f := TruncateToDay(from)
	t := TruncateToDay(to)
	return int(t.Sub(f).Hours() / 24)
}

// SameDayRange returns [00:00, next midnight) bounds for equality-by-day queries.
func SameDayRange(t time.Time) (time.Time, time.Time) {
	start := TruncateToDay(t)
	return start, start.AddDate(0, 0, 1)
}
