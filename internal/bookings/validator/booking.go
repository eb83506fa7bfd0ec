package validator

import (
	"errors"
	"fmt"
	"strings"
	"time"
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

type BookingValidator struct {
	validate *validator.Validate
	logger   *logger.Logger
}

func NewBookingValidator(log *logger.Logger) *BookingValidator {
	v := validator.New()

	if err := v.RegisterValidation("booking_status", validateBookingStatus); err != nil {
		log.Fatal("Failed to register 'booking_status' validator", "error", err)
	}

	log.Debug("Booking validator initialized successfully")

	return &BookingValidator{
		validate: v,
		logger:   log,
	}
}

func validateBookingStatus(fl validator.FieldLevel) bool {
	switch fl.Field().String() {
	case model.BookingPending, model.BookingConfirmed, model.BookingCancelled, model.BookingCompleted:
		return true
	}
	return false
}

// ValidateCreate checks the request shape and the date rules relative to today.
// All violations are reported together.
func (v *BookingValidator) ValidateCreate(req *model.CreateBookingRequest, today time.Time) error {
	var errs ValidationErrors
	if err := v.structErrors(req); err != nil {
		var fieldErrs ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return err
		}
		errs = append(errs, fieldErrs...)
	}

	if !req.BookingDate.IsZero() && req.BookingDate.Time().Before(daterange.Normalize(today)) {
		errs = append(errs, ValidationError{
			Field:   "BookingDate",
			Message: "booking_date cannot be in the past",
		})
	}

	if hotel := req.HotelBooking; hotel != nil && !hotel.CheckIn.IsZero() && !hotel.CheckOut.IsZero() {
		if err := daterange.ValidateStay(hotel.CheckIn.Time(), hotel.CheckOut.Time()); err != nil {
			errs = append(errs, ValidationError{Field: "CheckOut", Message: err.Error()})
		}
	}

	if len(errs) > 0 {
		return errs
	}
	return nil
}

func (v *BookingValidator) ValidateStatusUpdate(req *model.StatusUpdateRequest) error {
	return v.structErrors(req)
}

func (v *BookingValidator) ValidateCancel(req *model.CancelRequest) error {
	return v.structErrors(req)
}

func (v *BookingValidator) ValidateMarkPaid(req *model.MarkPaidRequest) error {
	return v.structErrors(req)
}

func (v *BookingValidator) structErrors(s any) error {
	if err := v.validate.Struct(s); err != nil {
		var validationErrs validator.ValidationErrors
		if errors.As(err, &validationErrs) {
			return v.translateValidationErrors(validationErrs)
		}
		return err
	}
	return nil
}

func (v *BookingValidator) translateValidationErrors(errs validator.ValidationErrors) ValidationErrors {
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
		case "booking_status":
			message = fmt.Sprintf("%s must be one of: pending confirmed cancelled completed", err.Field())
		}

		validationErrors = append(validationErrors, ValidationError{
			Field:   err.Field(),
			Message: message,
		})
	}

	return validationErrors
}
