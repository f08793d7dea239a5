package validator

import (
	"fmt"
	"reflect"
	"time"

	"github.com/eems-edu/examiner-service/internal/models"
	"github.com/go-playground/validator/v10"
)

// BusinessValidator handles business rule validation
type BusinessValidator struct {
	validate *validator.Validate
}

// NewBusinessValidator creates a new business validator
func NewBusinessValidator() *BusinessValidator {
	validate := validator.New()

	bv := &BusinessValidator{validate: validate}
	bv.registerBusinessRules()

	return bv
}

// Validate validates business rules for any struct
func (bv *BusinessValidator) Validate(s interface{}) ValidationErrors {
	err := bv.validate.Struct(s)
	if err != nil {
		return ToValidationErrors(err)
	}
	return nil
}

// ValidateExamCreate validates exam scheduling business rules
func (bv *BusinessValidator) ValidateExamCreate(req *ExamCreateRequest) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)

	if req.ExamDate.Before(time.Now()) {
		errors = append(errors, ValidationError{
			Field:   "exam_date",
			Message: "must be in the future",
			Value:   req.ExamDate,
			Rule:    "business_logic",
		})
	}

	return errors
}

// ValidateExamUpdate validates exam update business rules. Approved exams
// are frozen except for venue changes.
func (bv *BusinessValidator) ValidateExamUpdate(req *ExamUpdateRequest, existing *models.Exam) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)

	if existing.Status == models.ExamStatusApproved {
		if req.ExamDate != nil && !req.ExamDate.Equal(existing.ExamDate) {
			errors = append(errors, ValidationError{
				Field:   "exam_date",
				Message: "cannot be changed after approval",
				Value:   *req.ExamDate,
				Rule:    "business_logic",
			})
		}
		if req.Subject != nil && *req.Subject != existing.Subject {
			errors = append(errors, ValidationError{
				Field:   "subject",
				Message: "cannot be changed after approval",
				Value:   *req.Subject,
				Rule:    "business_logic",
			})
		}
	}

	return errors
}

// ValidateStatusTransition validates exam review status transitions
func (bv *BusinessValidator) ValidateStatusTransition(currentStatus, newStatus models.ExamStatus) ValidationErrors {
	var errors ValidationErrors

	allowedTransitions := map[models.ExamStatus][]models.ExamStatus{
		models.ExamStatusPending:  {models.ExamStatusApproved, models.ExamStatusRejected},
		models.ExamStatusApproved: {},
		models.ExamStatusRejected: {},
	}

	allowed := false
	for _, allowedStatus := range allowedTransitions[currentStatus] {
		if newStatus == allowedStatus {
			allowed = true
			break
		}
	}

	if !allowed {
		errors = append(errors, ValidationError{
			Field:   "status",
			Message: fmt.Sprintf("cannot transition from %s to %s", currentStatus, newStatus),
			Value:   newStatus,
			Rule:    "status_transition",
		})
	}

	return errors
}

// ValidateInviteResponse validates an accept/decline payload against the
// current invite state
func (bv *BusinessValidator) ValidateInviteResponse(req *InviteResponseRequest, invite *models.ExamInvite, now time.Time) ValidationErrors {
	var errors ValidationErrors

	errors = append(errors, bv.Validate(req)...)

	if invite.Status != models.InviteStatusPending {
		errors = append(errors, ValidationError{
			Field:   "status",
			Message: "invitation has already been responded to",
			Value:   invite.Status,
			Rule:    "business_logic",
		})
	}

	if invite.IsExpired(now) {
		errors = append(errors, ValidationError{
			Field:   "expires_at",
			Message: "invitation has expired",
			Value:   invite.ExpiresAt,
			Rule:    "business_logic",
		})
	}

	return errors
}

// ValidateDeletePermission validates if an exam can be deleted
func (bv *BusinessValidator) ValidateDeletePermission(inviteCount int, status models.ExamStatus) ValidationErrors {
	var errors ValidationErrors

	if status == models.ExamStatusApproved && inviteCount > 0 {
		errors = append(errors, ValidationError{
			Field:   "invites",
			Message: "cannot delete approved exam with outstanding invitations",
			Value:   inviteCount,
			Rule:    "business_logic",
		})
	}

	return errors
}

// registerBusinessRules registers custom business rule validators
func (bv *BusinessValidator) registerBusinessRules() {
	// Exam date validation (must be in future)
	bv.validate.RegisterValidation("future_date", func(fl validator.FieldLevel) bool {
		field := fl.Field()

		if field.Kind() == reflect.Ptr && field.IsNil() {
			return true // Optional field
		}

		var examDate time.Time
		if field.Kind() == reflect.Ptr {
			examDate = field.Elem().Interface().(time.Time)
		} else {
			examDate = field.Interface().(time.Time)
		}

		return examDate.After(time.Now())
	})

	// Post/role validation: the raw value must map to a known role synonym.
	// Normalization stays forgiving for stored data, but a registration
	// payload with an unrecognizable post is rejected up front.
	bv.validate.RegisterValidation("user_role", func(fl validator.FieldLevel) bool {
		field := fl.Field()
		if field.Kind() == reflect.Ptr {
			if field.IsNil() {
				return true
			}
			field = field.Elem()
		}
		return models.IsRecognizedPost(field.String())
	})

	// Exam duration validation (30-480 minutes)
	bv.validate.RegisterValidation("exam_duration", func(fl validator.FieldLevel) bool {
		duration := fl.Field().Int()
		return duration >= 30 && duration <= 480
	})
}
