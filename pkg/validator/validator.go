package validator

import (
	"fmt"

	"github.com/gin-gonic/gin/binding"
	playground "github.com/go-playground/validator/v10"
	"github.com/rentamate/booking-backend/internal/models"
)

const (
	// TagTimeOfDay validates a 24h "HH:MM" clock time
	TagTimeOfDay = "hhmm"
	// TagDate validates a calendar date in "YYYY-MM-DD" form
	TagDate = "isodate"
)

// Register adds the booking tags to v
func Register(v *playground.Validate) error {
	if err := v.RegisterValidation(TagTimeOfDay, validateTimeOfDay); err != nil {
		return fmt.Errorf("failed to register %s: %w", TagTimeOfDay, err)
	}
	if err := v.RegisterValidation(TagDate, validateDate); err != nil {
		return fmt.Errorf("failed to register %s: %w", TagDate, err)
	}
	return nil
}

// RegisterWithGin adds the booking tags to gin's binding validator
func RegisterWithGin() error {
	v, ok := binding.Validator.Engine().(*playground.Validate)
	if !ok {
		return fmt.Errorf("gin binding engine is %T, not go-playground validator", binding.Validator.Engine())
	}
	return Register(v)
}

func validateTimeOfDay(fl playground.FieldLevel) bool {
	_, err := models.ParseTimeOfDay(fl.Field().String())
	return err == nil
}

func validateDate(fl playground.FieldLevel) bool {
	_, err := models.ParseDate(fl.Field().String())
	return err == nil
}

// Messages flattens validation errors into field -> reason for API responses
func Messages(err error) map[string]string {
	verrs, ok := err.(playground.ValidationErrors)
	if !ok {
		return nil
	}

	out := make(map[string]string, len(verrs))
	for _, fe := range verrs {
		switch fe.Tag() {
		case "required", "required_without":
			out[fe.Field()] = "is required"
		case TagTimeOfDay:
			out[fe.Field()] = "must be a time in HH:MM format"
		case TagDate:
			out[fe.Field()] = "must be a date in YYYY-MM-DD format"
		case "uuid":
			out[fe.Field()] = "must be a UUID"
		default:
			out[fe.Field()] = fmt.Sprintf("failed %s validation", fe.Tag())
		}
	}
	return out
}
