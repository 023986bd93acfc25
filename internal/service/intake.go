package service

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/spec-kit/ticketdesk/internal/domain"
	apperrors "github.com/spec-kit/ticketdesk/pkg/util/errorutil"
)

var validate = validator.New()

func fieldRule(f domain.IntakeField) string {
	rule := "omitempty"
	if f.Required {
		rule = "required"
	}
	if f.MaxLength > 0 {
		rule += fmt.Sprintf(",max=%d", f.MaxLength)
	}
	return rule
}

// normalizeIntake trims answers, drops keys the kind does not ask for and
// checks the rest against the kind's field rules.
func normalizeIntake(def domain.KindDefinition, answers map[string]string) (map[string]string, error) {
	if !def.RequiresForm() {
		return nil, nil
	}
	out := make(map[string]string, len(def.Fields))
	problems := map[string]any{}
	for _, f := range def.Fields {
		value := strings.TrimSpace(answers[f.Key])
		if err := validate.Var(value, fieldRule(f)); err != nil {
			if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
				problems[f.Key] = verrs[0].Tag()
			} else {
				problems[f.Key] = err.Error()
			}
			continue
		}
		if value != "" {
			out[f.Key] = value
		}
	}
	if len(problems) > 0 {
		return nil, apperrors.NewValidationError("intake answers rejected", problems)
	}
	return out, nil
}
