// Package hostcheck verifies kernel settings the server needs before it is started.
package hostcheck

import (
	"fmt"
	"os"
	"runtime"
	"strconv"
	"strings"

	srvErrors "github.com/lequal/sonarqube-verify/pkg/errors"
)

const (
	MaxMapCountPath    = "/proc/sys/vm/max_map_count"
	MinMaxMapCount     = 262144
	maxMapCountSetting = "vm.max_map_count"
)

// ReadFunc reads a kernel setting file.
type ReadFunc func(path string) ([]byte, error)

type Checker struct {
	read ReadFunc
	goos string
}

func NewChecker() *Checker {
	return &Checker{read: os.ReadFile, goos: runtime.GOOS}
}

// NewCheckerWithReader is used by tests to fake /proc.
func NewCheckerWithReader(goos string, read ReadFunc) *Checker {
	return &Checker{read: read, goos: goos}
}

// CheckMaxMapCount requires vm.max_map_count to be at least MinMaxMapCount.
// The setting only exists on Linux; other platforms pass.
func (c *Checker) CheckMaxMapCount() error {
	if c.goos != "linux" {
		return nil
	}

	data, err := c.read(MaxMapCountPath)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", maxMapCountSetting, err)
	}

	raw := strings.TrimSpace(string(data))
	value, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("invalid %s value %q: %w", maxMapCountSetting, raw, err)
	}

	if value < MinMaxMapCount {
		return srvErrors.NewHostPreconditionError(
			maxMapCountSetting,
			raw,
			fmt.Sprintf("sysctl -w %s=%d", maxMapCountSetting, MinMaxMapCount),
		)
	}
	return nil
}
