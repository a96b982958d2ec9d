package serialhost

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// lineParams mirrors the numeric line settings for the struct-tag pass.
type lineParams struct {
	BaudRate int `validate:"oneof=1200 2400 4800 9600 19200 38400 57600 115200 230400 460800 921600"`
	DataBits int `validate:"min=5,max=8"`
	Parity   int `validate:"min=0,max=4"`
}

// ValidateConfig validates serial host configuration parameters.
func ValidateConfig(cfg *Config) error {
	if err := validatePortName(cfg.PortName); err != nil {
		return err
	}

	if err := validate.Struct(lineParams{
		BaudRate: cfg.BaudRate.Int(),
		DataBits: cfg.DataBits.Int(),
		Parity:   int(cfg.Parity),
	}); err != nil {
		return fmt.Errorf("invalid line parameters: %w", err)
	}

	switch cfg.StopBits {
	case StopBits1, StopBits1Half, StopBits2:
	default:
		return fmt.Errorf("invalid stop bits value: %d", cfg.StopBits)
	}

	if cfg.ReadTimeout < 0 {
		return fmt.Errorf("read timeout cannot be negative: %v", cfg.ReadTimeout)
	}
	if cfg.IdleTimeout < 0 {
		return fmt.Errorf("idle timeout cannot be negative: %v", cfg.IdleTimeout)
	}

	if cfg.OnData == nil {
		return fmt.Errorf("data handler cannot be nil")
	}

	return nil
}

func validatePortName(portName string) error {
	if portName == "" {
		return fmt.Errorf("port name cannot be empty")
	}

	// Reject path traversal outright.
	if strings.Contains(portName, "..") {
		return fmt.Errorf("invalid port name: contains path traversal")
	}

	if !isValidPortPattern(portName) {
		return fmt.Errorf("port name doesn't match expected pattern: %s", portName)
	}
	return nil
}

func isValidPortPattern(portName string) bool {
	// Windows: COM1-COM999.
	if rest, ok := strings.CutPrefix(portName, "COM"); ok {
		return len(rest) >= 1 && len(rest) <= 3 && allDigits(rest)
	}
	// Unix-like: anything under /dev, covering /dev/tty*, /dev/cu* on
	// macOS, /dev/serial/by-id symlinks and pty slaves used in tests.
	if strings.HasPrefix(portName, "/dev/") && len(portName) > len("/dev/") {
		return true
	}
	return false
}

func allDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
