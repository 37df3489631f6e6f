package runner

import (
	"fmt"
	"strings"
	"time"

	"github.com/danmuck/taskrunner/internal/protocol/frame"
	"github.com/go-playground/validator/v10"
)

const DefaultSocketPath = "taskrunner.socket"

// ServiceConfig configures the task socket endpoint.
type ServiceConfig struct {
	SocketPath       string        `validate:"required"`
	StatusSocketPath string        `validate:"omitempty,nefield=SocketPath"`
	MaxWorkers       int           `validate:"min=1"`
	SubmitQueue      int           `validate:"min=0"`
	ReadTimeout      time.Duration `validate:"min=0"`
	MaxFieldBytes    int           `validate:"min=1"`
}

// DefaultServiceConfig returns twenty connection workers and no read
// timeout.
func DefaultServiceConfig() ServiceConfig {
	return ServiceConfig{
		SocketPath:       DefaultSocketPath,
		StatusSocketPath: "",
		MaxWorkers:       20,
		SubmitQueue:      64,
		ReadTimeout:      0,
		MaxFieldBytes:    frame.DefaultLimits().MaxFieldBytes,
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate checks field constraints and reports the first failing field.
func (c ServiceConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("runner config: %s failed %q (value %v)", fe.Field(), fe.Tag(), fe.Value())
		}
		return fmt.Errorf("runner config: %w", err)
	}
	return nil
}

// WithDefaults fills zero values from DefaultServiceConfig.
func (c ServiceConfig) WithDefaults() ServiceConfig {
	def := DefaultServiceConfig()
	if strings.TrimSpace(c.SocketPath) == "" {
		c.SocketPath = def.SocketPath
	}
	if c.MaxWorkers <= 0 {
		c.MaxWorkers = def.MaxWorkers
	}
	if c.SubmitQueue < 0 {
		c.SubmitQueue = def.SubmitQueue
	}
	if c.MaxFieldBytes <= 0 {
		c.MaxFieldBytes = def.MaxFieldBytes
	}
	if c.ReadTimeout < 0 {
		c.ReadTimeout = 0
	}
	return c
}
