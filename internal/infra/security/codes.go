package security

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/Sampath5633/Medica-Backend/internal/core/port"
)

// DefaultCodeLength is the number of digits in an emailed one-time code.
const DefaultCodeLength = 6

// GenerateNumericCode returns a uniformly random numeric string of the given length, zero padded.
func GenerateNumericCode(length int) (string, error) {
	if length <= 0 || length > 18 {
		return "", fmt.Errorf("length must be between 1 and 18")
	}

	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(length)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}

	return fmt.Sprintf("%0*d", length, n.Int64()), nil
}

// NumericCodeGenerator issues fixed-length numeric codes.
type NumericCodeGenerator struct {
	Length int
}

// Generate implements port.CodeGenerator.
func (g NumericCodeGenerator) Generate() (string, error) {
	length := g.Length
	if length <= 0 {
		length = DefaultCodeLength
	}
	return GenerateNumericCode(length)
}

var _ port.CodeGenerator = NumericCodeGenerator{}
