package models

import (
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// Validate checks a course before it is written to the store.
func (c *Course) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Name, validation.Required),
		validation.Field(&c.Weekday, validation.Min(0), validation.Max(6)),
		validation.Field(&c.Period, validation.Required, validation.Min(1)),
		validation.Field(&c.Span, validation.Required, validation.Min(1)),
		validation.Field(&c.Color, validation.By(colorTag)),
		validation.Field(&c.Weeks),
	)
}

// Validate checks the week range and parity.
func (w WeekPattern) Validate() error {
	return validation.ValidateStruct(&w,
		validation.Field(&w.First, validation.Required, validation.Min(1)),
		validation.Field(&w.Last, validation.Required, validation.Min(w.First)),
		validation.Field(&w.Parity, validation.In(ParityAll, ParityOdd, ParityEven)),
	)
}

// colorTag accepts hex-like triplets or sextets, with or without '#'.
// Only the length is checked.
func colorTag(v any) error {
	s, _ := v.(string)
	if s == "" {
		return nil
	}
	switch len(strings.TrimPrefix(s, "#")) {
	case 3, 6:
		return nil
	}
	return validation.NewError("validation_color_length", "must be a 3 or 6 digit color")
}
