package core

import (
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
)

func TestAlphaNumUnderValidation(t *testing.T) {
	validate := validator.New()
	enLocale := en.New()
	translator, _ := ut.New(enLocale, enLocale).GetTranslator("en")
	InitValidators(validate, translator)

	type subject struct {
		StudentNumber string `json:"student_number" validate:"required,alphanum_"`
	}

	tests := []struct {
		value   string
		wantErr bool
	}{
		{"2021-00001", false},
		{"jsantos", false},
		{"juan_santos", false},
		{"MS 01", false},
		{"j.santos", true},
		{"drop;table", true},
	}
	for _, tt := range tests {
		err := validate.Struct(&subject{StudentNumber: tt.value})
		if gotErr := err != nil; gotErr != tt.wantErr {
			t.Errorf("validate(%q) error = %v, wantErr %v", tt.value, err, tt.wantErr)
		}
	}
}
