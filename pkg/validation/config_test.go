package validation

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestConfigValidatorRules(t *testing.T) {
	tests := []struct {
		name    string
		apply   func(cv *ConfigValidator)
		wantErr string
	}{
		{"required ok", func(cv *ConfigValidator) { cv.Required("backend", "memory") }, ""},
		{"required empty", func(cv *ConfigValidator) { cv.Required("backend", "") }, "persistence.backend: required field is empty"},
		{"range ok", func(cv *ConfigValidator) { cv.RangeInt("port", 8080, 1, 65535) }, ""},
		{"range low", func(cv *ConfigValidator) { cv.RangeInt("port", 0, 1, 65535) }, "outside range"},
		{"positive", func(cv *ConfigValidator) { cv.Positive("max_size", -1) }, "must be positive"},
		{"min duration", func(cv *ConfigValidator) { cv.MinDuration("timeout", time.Millisecond, time.Second) }, "below minimum"},
		{"min length", func(cv *ConfigValidator) { cv.MinLength("jwt_secret", "short", 32) }, "at least 32 characters"},
		{"one of ok", func(cv *ConfigValidator) { cv.OneOf("format", "json", []string{"json", "console"}) }, ""},
		{"one of bad", func(cv *ConfigValidator) { cv.OneOf("format", "xml", []string{"json", "console"}) }, `"xml" must be one of`},
		{"url ok", func(cv *ConfigValidator) { cv.URL("url", "https://store.example", "http", "https") }, ""},
		{"url relative", func(cv *ConfigValidator) { cv.URL("url", "/nodes") }, "not an absolute URL"},
		{"url scheme", func(cv *ConfigValidator) { cv.URL("url", "ftp://store.example", "http", "https") }, `scheme "ftp"`},
		{"custom", func(cv *ConfigValidator) { cv.Custom("dsn", func() error { return errors.New("bad dsn") }) }, "persistence.dsn: bad dsn"},
		{"when false", func(cv *ConfigValidator) {
			cv.When(false, func(cv *ConfigValidator) { cv.Required("path", "") })
		}, ""},
		{"when true", func(cv *ConfigValidator) {
			cv.When(true, func(cv *ConfigValidator) { cv.Required("path", "") })
		}, "persistence.path"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cv := NewConfigValidator("persistence")
			tt.apply(cv)
			err := cv.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfigValidatorCollectsAllErrors(t *testing.T) {
	sentinel := errors.New("sentinel")
	cv := NewConfigValidator("server").
		Required("addr", "").
		RangeInt("port", 70000, 1, 65535).
		Custom("tls", func() error { return sentinel })

	if !cv.HasErrors() {
		t.Fatal("expected errors")
	}
	if got := len(cv.Errors()); got != 3 {
		t.Errorf("collected %d errors, want 3", got)
	}
	if err := cv.Validate(); !errors.Is(err, sentinel) {
		t.Errorf("joined error does not wrap the custom cause: %v", err)
	}
}

func TestDefaultOrDuration(t *testing.T) {
	if got := DefaultOrDuration(0, time.Second); got != time.Second {
		t.Errorf("DefaultOrDuration(0) = %v", got)
	}
	if got := DefaultOrDuration(2*time.Second, time.Second); got != 2*time.Second {
		t.Errorf("DefaultOrDuration(2s) = %v", got)
	}
}
