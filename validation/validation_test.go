package validation

import (
	"strings"
	"testing"

	"github.com/kbukum/hypermodel/errors"
)

func TestValidatorRequired(t *testing.T) {
	v := New()
	v.Required("host", "https://kfp.example.com")
	if v.HasErrors() {
		t.Error("expected no errors for valid input")
	}

	v2 := New()
	v2.Required("host", "")
	if !v2.HasErrors() {
		t.Error("expected error for empty required field")
	}

	v3 := New()
	v3.Required("host", "   ")
	if !v3.HasErrors() {
		t.Error("expected error for whitespace-only required field")
	}
}

func TestValidatorName(t *testing.T) {
	tests := []struct {
		value string
		valid bool
	}{
		{"create-training", true},
		{"train-model2", true},
		{"titanic", true},
		{"", false},
		{"CreateTraining", false},
		{"create_training", false},
		{"-leading", false},
		{"trailing-", false},
	}

	for _, tc := range tests {
		t.Run(tc.value, func(t *testing.T) {
			v := New().Name("op", tc.value)
			if v.HasErrors() == tc.valid {
				t.Errorf("Name(%q) valid=%v, errors=%v", tc.value, tc.valid, v.Errors())
			}
		})
	}
}

func TestValidatorPattern(t *testing.T) {
	v := New()
	v.Pattern("cron", "0 0 * * *", `^(\S+\s+){4}\S+$`)
	if v.HasErrors() {
		t.Error("expected no error for matching pattern")
	}

	v2 := New()
	v2.Pattern("cron", "daily", `^(\S+\s+){4}\S+$`)
	if !v2.HasErrors() {
		t.Error("expected error for non-matching pattern")
	}

	// Empty value should be skipped
	v3 := New()
	v3.Pattern("cron", "", `^(\S+\s+){4}\S+$`)
	if v3.HasErrors() {
		t.Error("expected no error for empty value with pattern")
	}
}

func TestValidatorCron(t *testing.T) {
	tests := []struct {
		value string
		valid bool
	}{
		{"", true},
		{"0 0 * * *", true},
		{"*/5 1-3 * * MON", true},
		{"@daily", true},
		{"daily", false},
		{"0 0 * *", false},
		{"@sometimes", false},
	}
	for _, tc := range tests {
		t.Run(tc.value, func(t *testing.T) {
			v := New().Cron("cron", tc.value)
			if v.HasErrors() == tc.valid {
				t.Errorf("Cron(%q) valid=%v, errors=%v", tc.value, tc.valid, v.Errors())
			}
		})
	}
}

func TestValidatorOneOf(t *testing.T) {
	v := New()
	v.OneOf("env", "dev", []string{"dev", "prod"})
	if v.HasErrors() {
		t.Error("expected no error for valid oneOf value")
	}

	v2 := New()
	v2.OneOf("env", "qa", []string{"dev", "prod"})
	if !v2.HasErrors() {
		t.Error("expected error for value outside the allowed set")
	}

	// Empty should be skipped
	v3 := New()
	v3.OneOf("env", "", []string{"dev"})
	if v3.HasErrors() {
		t.Error("expected no error for empty oneOf value")
	}
}

func TestValidatorValidate(t *testing.T) {
	v := New()
	v.Required("host", "https://kfp.example.com")
	if appErr := v.Validate(); appErr != nil {
		t.Error("expected nil for valid input")
	}

	v2 := New()
	v2.Required("host", "")
	v2.Required("client_id", "")
	appErr := v2.Validate()
	if appErr == nil {
		t.Fatal("expected error")
	}
	if appErr.Code != errors.ErrCodeInvalidInput {
		t.Errorf("expected INVALID_INPUT, got %s", appErr.Code)
	}
	if appErr.Details == nil {
		t.Fatal("expected details in error")
	}
	if !strings.Contains(appErr.Message, "host") || !strings.Contains(appErr.Message, "client_id") {
		t.Errorf("expected both fields in message, got %q", appErr.Message)
	}
}

func TestValidatorChaining(t *testing.T) {
	v := New()
	result := v.Required("host", "h").Name("pipeline", "titanic").Cron("cron", "@daily")
	if result != v {
		t.Error("expected chaining to return same validator")
	}
	if v.HasErrors() {
		t.Error("expected no errors for valid chained validation")
	}
}

func TestStructValidateUsesYAMLNames(t *testing.T) {
	type Target struct {
		Host string `yaml:"host" validate:"required,url"`
		Port int    `yaml:"http_port" validate:"gte=0,lte=65535"`
	}

	if err := Validate(Target{Host: "https://kfp.example.com", Port: 8000}); err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	err := Validate(Target{Host: "", Port: 70000})
	if err == nil {
		t.Fatal("expected validation error")
	}
	msg := err.Error()
	if !strings.Contains(msg, "host: is required") {
		t.Errorf("expected host message, got %q", msg)
	}
	if !strings.Contains(msg, "http_port: must be less than or equal to 65535") {
		t.Errorf("expected yaml tag name for port, got %q", msg)
	}
}

func TestStructValidateFallsBackToSnakeCase(t *testing.T) {
	type Input struct {
		ClientID string `validate:"required"`
	}

	err := Validate(Input{})
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "client_i_d") {
		t.Errorf("expected snake_case field name, got %q", err.Error())
	}
}

func TestRequiredFunc(t *testing.T) {
	if err := Required("name", "value"); err != nil {
		t.Errorf("expected nil, got %v", err)
	}
	if err := Required("name", ""); err == nil {
		t.Error("expected error for empty required field")
	}
}
