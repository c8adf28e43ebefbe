package overseer

import (
	"errors"
	"fmt"
	"math/big"
	"strings"
)

// Dec is a non-negative fixed-point decimal with 18 fractional digits. It is
// the wire and storage representation for LTV ratios, deposit rates and
// distribution factors. All arithmetic floors toward zero; native floating
// point is never used.
type Dec struct {
	i *big.Int
}

const decPrecision = 18

var decUnit = new(big.Int).Exp(big.NewInt(10), big.NewInt(decPrecision), nil)

var errInvalidDecimal = errors.New("overseer: invalid decimal literal")

// ZeroDec returns the zero decimal.
func ZeroDec() Dec { return Dec{i: big.NewInt(0)} }

// OneDec returns the decimal 1.0.
func OneDec() Dec { return Dec{i: new(big.Int).Set(decUnit)} }

// NewDecFromString parses a non-negative decimal literal such as "0.5" or
// "1". At most 18 fractional digits are accepted.
func NewDecFromString(s string) (Dec, error) {
	trimmed := strings.TrimSpace(s)
	if trimmed == "" || strings.HasPrefix(trimmed, "-") {
		return Dec{}, errInvalidDecimal
	}
	intPart := trimmed
	fracPart := ""
	if idx := strings.IndexByte(trimmed, '.'); idx >= 0 {
		intPart = trimmed[:idx]
		fracPart = trimmed[idx+1:]
	}
	if intPart == "" {
		intPart = "0"
	}
	if len(fracPart) > decPrecision {
		return Dec{}, fmt.Errorf("%w: more than %d fractional digits", errInvalidDecimal, decPrecision)
	}
	digits := intPart + fracPart + strings.Repeat("0", decPrecision-len(fracPart))
	value, ok := new(big.Int).SetString(digits, 10)
	if !ok || value.Sign() < 0 {
		return Dec{}, errInvalidDecimal
	}
	return Dec{i: value}, nil
}

// MustDec parses a decimal literal and panics on malformed input. Intended
// for constants and tests.
func MustDec(s string) Dec {
	d, err := NewDecFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// DecFromRatio returns num/den as a decimal, flooring toward zero. A zero
// denominator yields zero.
func DecFromRatio(num, den *big.Int) Dec {
	if num == nil || den == nil || den.Sign() == 0 || num.Sign() <= 0 {
		return ZeroDec()
	}
	scaled := new(big.Int).Mul(num, decUnit)
	return Dec{i: scaled.Quo(scaled, den)}
}

func (d Dec) bigInt() *big.Int {
	if d.i == nil {
		return big.NewInt(0)
	}
	return d.i
}

// IsZero reports whether the decimal is zero (or uninitialised).
func (d Dec) IsZero() bool { return d.i == nil || d.i.Sign() == 0 }

// Cmp compares two decimals like big.Int.Cmp.
func (d Dec) Cmp(other Dec) int { return d.bigInt().Cmp(other.bigInt()) }

// LT reports d < other.
func (d Dec) LT(other Dec) bool { return d.Cmp(other) < 0 }

// GT reports d > other.
func (d Dec) GT(other Dec) bool { return d.Cmp(other) > 0 }

// Add returns d + other.
func (d Dec) Add(other Dec) Dec {
	return Dec{i: new(big.Int).Add(d.bigInt(), other.bigInt())}
}

// Sub returns d - other clamped at zero.
func (d Dec) Sub(other Dec) Dec {
	diff := new(big.Int).Sub(d.bigInt(), other.bigInt())
	if diff.Sign() < 0 {
		diff.SetInt64(0)
	}
	return Dec{i: diff}
}

// Mul returns d × other flooring toward zero.
func (d Dec) Mul(other Dec) Dec {
	product := new(big.Int).Mul(d.bigInt(), other.bigInt())
	return Dec{i: product.Quo(product, decUnit)}
}

// MulInt returns d × x as an integer, flooring toward zero.
func (d Dec) MulInt(x *big.Int) *big.Int {
	if x == nil || x.Sign() == 0 || d.IsZero() {
		return big.NewInt(0)
	}
	product := new(big.Int).Mul(d.bigInt(), x)
	return product.Quo(product, decUnit)
}

// QuoUint64 returns d / n flooring toward zero. A zero divisor yields zero.
func (d Dec) QuoUint64(n uint64) Dec {
	if n == 0 || d.IsZero() {
		return ZeroDec()
	}
	return Dec{i: new(big.Int).Quo(d.bigInt(), new(big.Int).SetUint64(n))}
}

// Clone returns a deep copy of the decimal.
func (d Dec) Clone() Dec { return Dec{i: new(big.Int).Set(d.bigInt())} }

// String renders the decimal with trailing fractional zeros trimmed, e.g.
// "0.5", "12", "0.000000000000000001".
func (d Dec) String() string {
	value := d.bigInt()
	quo := new(big.Int)
	rem := new(big.Int)
	quo.QuoRem(value, decUnit, rem)
	if rem.Sign() == 0 {
		return quo.String()
	}
	frac := fmt.Sprintf("%018s", rem.String())
	frac = strings.TrimRight(frac, "0")
	return quo.String() + "." + frac
}

// MarshalText implements encoding.TextMarshaler using the decimal literal
// form, matching the contract wire format.
func (d Dec) MarshalText() ([]byte, error) { return []byte(d.String()), nil }

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *Dec) UnmarshalText(text []byte) error {
	parsed, err := NewDecFromString(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
