package config

import (
	"fmt"
	"strconv"
	"strings"
)

// Switch is a boolean flag that also accepts yes/no and on/off.
type Switch bool

func (s *Switch) Set(v string) error {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "yes", "y", "on":
		*s = true
		return nil
	case "no", "n", "off":
		*s = false
		return nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return fmt.Errorf("invalid switch value %q", v)
	}
	*s = Switch(b)
	return nil
}

func (s *Switch) String() string {
	if s != nil && *s {
		return "yes"
	}
	return "no"
}

func (s *Switch) Type() string {
	return "yes|no"
}

func (s Switch) Enabled() bool {
	return bool(s)
}
