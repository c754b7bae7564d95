package echoapi

import (
	"github.com/go-playground/validator/v10"

	"github.com/edulive/classpulse/core"
	"github.com/edulive/classpulse/core/session"
)

type (
	ChooseRoleRequest struct {
		Role string `json:"role" validate:"required,oneof=teacher student"`
		Name string `json:"name"`
	}

	ChooseRoleResponse struct {
		Token       string       `json:"token"`
		SessionID   string       `json:"session_id"`
		Role        session.Role `json:"role"`
		StudentName string       `json:"student_name,omitempty"`
	}

	SessionResponse struct {
		SessionID   string       `json:"session_id"`
		UserRole    session.Role `json:"user_role"`
		StudentName string       `json:"student_name,omitempty"`
		CurrentID   string       `json:"current_id,omitempty"`
	}

	SubmitAnswerRequest struct {
		Option string `json:"option"`
	}

	EmailReportRequest struct {
		Email string `json:"email" validate:"required,email"`
	}

	CanCreateResponse struct {
		CanCreate bool `json:"can_create"`
	}

	SuccessResponse struct {
		Success string `json:"success"`
	}
)

func (r *ChooseRoleRequest) Validate(validate *validator.Validate) error {
	r.Role = core.CleanString(r.Role, true /* lower */)
	r.Name = core.CleanString(r.Name)
	return validate.Struct(r)
}

func (r *EmailReportRequest) Validate(validate *validator.Validate) error {
	r.Email = core.CleanString(r.Email, true /* lower */)
	return validate.Struct(r)
}
