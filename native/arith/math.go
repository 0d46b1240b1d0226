package arith

import (
	"errors"

	"github.com/holiman/uint256"
)

// BpsDenominator is the basis-point scale used by every fee and threshold.
const BpsDenominator uint64 = 10_000

var (
	ErrOverflow       = errors.New("arith: overflow")
	ErrUnderflow      = errors.New("arith: underflow")
	ErrDivisionByZero = errors.New("arith: division by zero")
	ErrInvalidBps     = errors.New("arith: basis points exceed denominator")
)

// Add returns a+b or ErrOverflow.
func Add(a, b uint64) (uint64, error) {
	sum := a + b
	if sum < a {
		return 0, ErrOverflow
	}
	return sum, nil
}

// Sub returns a-b or ErrUnderflow when b > a.
func Sub(a, b uint64) (uint64, error) {
	if b > a {
		return 0, ErrUnderflow
	}
	return a - b, nil
}

// MulDiv computes a*b/d with a 256-bit intermediate, truncating toward zero.
// The quotient must fit in 64 bits.
func MulDiv(a, b, d uint64) (uint64, error) {
	if d == 0 {
		return 0, ErrDivisionByZero
	}
	product := new(uint256.Int).Mul(uint256.NewInt(a), uint256.NewInt(b))
	quotient := product.Div(product, uint256.NewInt(d))
	if !quotient.IsUint64() {
		return 0, ErrOverflow
	}
	return quotient.Uint64(), nil
}

// ApplyBps returns amount*bps/10000.
func ApplyBps(amount uint64, bps uint64) (uint64, error) {
	if bps > BpsDenominator {
		return 0, ErrInvalidBps
	}
	return MulDiv(amount, bps, BpsDenominator)
}

// RatioBps returns part*10000/whole, the share of whole held by part.
func RatioBps(part, whole uint64) (uint64, error) {
	return MulDiv(part, BpsDenominator, whole)
}

// Isqrt returns floor(sqrt(n)).
func Isqrt(n uint64) uint64 {
	if n == 0 {
		return 0
	}
	x := n
	y := x/2 + x%2
	for y < x {
		x = y
		y = (x + n/x) / 2
	}
	return x
}

// Sum adds every value, failing on overflow.
func Sum(values ...uint64) (uint64, error) {
	var total uint64
	for _, v := range values {
		next, err := Add(total, v)
		if err != nil {
			return 0, err
		}
		total = next
	}
	return total, nil
}
