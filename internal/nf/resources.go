package nf

import (
	"fmt"
	"strconv"
	"strings"
)

// Resources captures compute requests in Kubernetes quantity notation.
type Resources struct {
	CPU    string `json:"cpu,omitempty"`
	Memory string `json:"memory,omitempty"`
}

// Validate checks both quantities. Empty values are allowed and mean
// "use the cluster default".
func (r Resources) Validate() error {
	if r.CPU != "" {
		if err := validateCPU(r.CPU); err != nil {
			return err
		}
	}
	if r.Memory != "" {
		if err := validateMemory(r.Memory); err != nil {
			return err
		}
	}
	return nil
}

// validateCPU accepts millicores ("500m") or whole/decimal cores ("2",
// "0.5").
func validateCPU(v string) error {
	s := v
	if strings.HasSuffix(s, "m") {
		s = strings.TrimSuffix(s, "m")
		if _, err := strconv.Atoi(s); err != nil {
			return fmt.Errorf("invalid cpu quantity %q", v)
		}
		return nil
	}
	if _, err := strconv.ParseFloat(s, 64); err != nil {
		return fmt.Errorf("invalid cpu quantity %q", v)
	}
	return nil
}

var memorySuffixes = []string{"Ki", "Mi", "Gi", "Ti"}

// validateMemory requires a binary-suffix quantity such as "512Mi".
func validateMemory(v string) error {
	for _, suf := range memorySuffixes {
		if strings.HasSuffix(v, suf) {
			num := strings.TrimSuffix(v, suf)
			if _, err := strconv.ParseFloat(num, 64); err == nil && num != "" {
				return nil
			}
			break
		}
	}
	return fmt.Errorf("invalid memory quantity %q (expected a value like 512Mi or 2Gi)", v)
}
