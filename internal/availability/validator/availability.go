package validator

import (
	"errors"
	"fmt"
	"strings"
	"tourbook/pkg/daterange"
	"tourbook/pkg/logger"
	"tourbook/pkg/model"

	"github.com/go-playground/validator/v10"
)

type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (v ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", v.Field, v.Message)
}

type ValidationErrors []ValidationError

func (v ValidationErrors) Error() string {
	if len(v) == 0 {
		return ""
	}
	var messages []string
	for _, err := range v {
		messages = append(messages, err.Error())
	}
	return fmt.Sprintf("validation failed: %d error(s): [%s]", len(v), strings.Join(messages, "; "))
}

type AvailabilityValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewAvailabilityValidator(log *logger.Logger) *AvailabilityValidator {
	v := validator.New()

	if err := v.RegisterValidation("resource_key", validateResourceKey); err != nil {
		log.Fatal("Failed to register 'resource_key' validator", "error", err)
	}
	if err := v.RegisterValidation("day", validateDay); err != nil {
		log.Fatal("Failed to register 'day' validator", "error", err)
	}

	log.Debug("Availability validator initialized successfully")

	return &AvailabilityValidator{
		validate: v,
		logger:   log,
	}
}

func validateResourceKey(fl validator.FieldLevel) bool {
	_, err := model.ParseResourceKey(fl.Field().String())
	return err == nil
}

func validateDay(fl validator.FieldLevel) bool {
	_, err := daterange.ParseDay(fl.Field().String())
	return err == nil
}

func (v *AvailabilityValidator) ValidateRoomRange(req *model.RoomRangeRequest) error {
	if err := v.structErrors(req); err != nil {
		return err
	}
	if err := daterange.ValidateStay(req.CheckIn.Time(), req.CheckOut.Time()); err != nil {
		return ValidationErrors{{Field: "CheckOut", Message: err.Error()}}
	}
	return nil
}

func (v *AvailabilityValidator) ValidateSetStatus(req *model.SetAvailabilityRequest) error {
	if err := v.structErrors(req); err != nil {
		return err
	}

	var errs ValidationErrors
	if (req.ResourceKey == "") == (req.TourID == "") {
		errs = append(errs, ValidationError{
			Field:   "ResourceKey",
			Message: "exactly one of resource_key or tour_id is required",
		})
	}
	if req.SlotsAvailable != nil && req.Status != model.AvailabilityLimited {
		errs = append(errs, ValidationError{
			Field:   "SlotsAvailable",
			Message: "slots_available is only allowed with status limited",
		})
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (v *AvailabilityValidator) ValidateCalendarQuery(q *model.CalendarQuery) error {
	return v.structErrors(q)
}

func (v *AvailabilityValidator) structErrors(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *AvailabilityValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
	var validationErrors ValidationErrors

	for _, err := range errs {
		message := err.Error()

		switch err.Tag() {
		case "required":
			message = fmt.Sprintf("%s is required", err.Field())
		case "min":
			message = fmt.Sprintf("%s must be at least %s", err.Field(), err.Param())
		case "max":
			message = fmt.Sprintf("%s must be at most %s", err.Field(), err.Param())
		case "oneof":
			message = fmt.Sprintf("%s must be one of: %s", err.Field(), err.Param())
		case "excludes":
			message = fmt.Sprintf("%s must not contain %q", err.Field(), err.Param())
		case "resource_key":
			message = fmt.Sprintf("%s must be room:<hotelId>:<roomId> or tour:<tourId>", err.Field())
		case "day":
			message = fmt.Sprintf("%s must be a date in YYYY-MM-DD format", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
