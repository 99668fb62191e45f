package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v4"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"github.com/tcp_snm/tracker/internal/tracker_errors"
)

type contextKey string

const (
	KeyCtxUserCredClaims contextKey = "UserCredClaims"
)

type UserCredentialClaims struct {
	UserID uuid.UUID `json:"user_id"`
	Role   string    `json:"role"`
	jwt.RegisteredClaims
}

// Clock returns the current time. Services take one so tests can move time.
type Clock func() time.Time

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func InitializeServices() {
	validateOnce.Do(func() {
		validate = initValidator() // used for validating struct fields
	})
}

func initValidator() *validator.Validate {
	log.Info("initializing validator")
	validate := validator.New(validator.WithRequiredStructEnabled())

	// This makes error.Field() return "first_name" instead of "FirstName"
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	return validate
}

// custom function for translating validation error into user readable errors
func translateValidationError(e validator.FieldError) string {
	switch e.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", e.Field())
	case "min":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at least %s characters long", e.Field(), e.Param())
		}
		return fmt.Sprintf("%s must be at least %s", e.Field(), e.Param())
	case "max":
		if e.Kind() == reflect.String {
			return fmt.Sprintf("%s must be at most %s characters long", e.Field(), e.Param())
		}
		return fmt.Sprintf("%s must be at most %s", e.Field(), e.Param())
	case "gtfield":
		return fmt.Sprintf("%s must be after %s", e.Field(), e.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", e.Field(), e.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", e.Field(), e.Param())
	case "alphanum":
		return fmt.Sprintf("%s must contain only letters and digits", e.Field())
	case "unique":
		return fmt.Sprintf("%s must not contain duplicates", e.Field())
	default:
		return fmt.Sprintf("Validation failed for %s with rule %s", e.Field(), e.Tag())
	}
}

// ValidateInput validates the input struct.
// If validation fails, it logs and returns the first user-friendly error message.
// Returns nil if input is valid.
func ValidateInput(inp any) error {
	InitializeServices()
	if err := validate.Struct(inp); err != nil {
		var validationErrors validator.ValidationErrors
		// Check if the error is a set of validation errors
		if errors.As(err, &validationErrors) && len(validationErrors) > 0 {
			// Grab and translate the first validation error for user feedback
			errorMessage := translateValidationError(validationErrors[0])
			log.Error(errorMessage)
			return fmt.Errorf("%w, %s", tracker_errors.ErrInvalidRequest, errorMessage)
		}
		return fmt.Errorf("%w, %w", tracker_errors.ErrInvalidRequest, err)
	}
	// All good, input is valid
	return nil
}

func GetClaimsFromContext(
	ctx context.Context,
) (claims UserCredentialClaims, err error) {
	claimsValue := ctx.Value(KeyCtxUserCredClaims)
	claims, ok := claimsValue.(UserCredentialClaims)
	if !ok {
		err = fmt.Errorf(
			"%w, unable to parse claims to service.UserCredentialClaims, type of claims found is %T",
			tracker_errors.ErrInternal,
			claimsValue,
		)
		log.Error(err)
	}
	return
}

func ContextWithClaims(ctx context.Context, claims UserCredentialClaims) context.Context {
	return context.WithValue(ctx, KeyCtxUserCredClaims, claims)
}
