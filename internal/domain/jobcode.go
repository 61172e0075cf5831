package domain

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
)

var jobCodePattern = regexp.MustCompile(`^R-\d{6}$`)

var jobCodeSpace = big.NewInt(1_000_000)

// JobCodeGenerator yields candidate job codes.
type JobCodeGenerator func() (string, error)

// NewJobCode returns a random code of the form R-NNNNNN.
func NewJobCode() (string, error) {
	n, err := rand.Int(rand.Reader, jobCodeSpace)
	if err != nil {
		return "", fmt.Errorf("cannot generate job code: %w", err)
	}

	return fmt.Sprintf("R-%06d", n.Int64()), nil
}

func ValidJobCode(code string) bool {
	return jobCodePattern.MatchString(code)
}
