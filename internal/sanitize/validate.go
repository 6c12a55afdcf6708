package sanitize

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

var (
	// ErrInvalidSubdomain indicates a subdomain is not a DNS label.
	ErrInvalidSubdomain = errors.New("invalid subdomain")

	// ErrInvalidID indicates a resource id is empty or unsafe in a URL path.
	ErrInvalidID = errors.New("invalid id")
)

var subdomainPattern = regexp.MustCompile(`^[a-z0-9]([a-z0-9-]{0,61}[a-z0-9])?$`)

// ValidateSubdomain checks that s is already normalized and a DNS label.
func ValidateSubdomain(s string) error {
	if s == "" {
		return fmt.Errorf("%w: empty", ErrInvalidSubdomain)
	}
	if len(s) > MaxSubdomainLength {
		return fmt.Errorf("%w: longer than %d characters", ErrInvalidSubdomain, MaxSubdomainLength)
	}
	if !subdomainPattern.MatchString(s) {
		return fmt.Errorf("%w: must be lowercase letters, digits and inner hyphens", ErrInvalidSubdomain)
	}
	return nil
}

// ValidateRequiredID rejects ids that are empty or could change the meaning
// of the path they are placed in.
func ValidateRequiredID(id, fieldName string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("%w: %s is required", ErrInvalidID, fieldName)
	}
	if id == "." || id == ".." || strings.ContainsAny(id, "/\\?#%") {
		return fmt.Errorf("%w: %s contains path characters", ErrInvalidID, fieldName)
	}
	return nil
}
