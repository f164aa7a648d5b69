package gas

import (
	"fmt"
	"math"
	"math/big"
)

// Rounding selects how a fractional adjusted estimate becomes whole gas.
type Rounding int

const (
	RoundNearest Rounding = iota // half up
	RoundFloor
)

func (r Rounding) String() string {
	switch r {
	case RoundNearest:
		return "nearest"
	case RoundFloor:
		return "floor"
	}
	return fmt.Sprintf("rounding(%d)", int(r))
}

// ParseRounding accepts "nearest" or "floor".
func ParseRounding(s string) (Rounding, error) {
	switch s {
	case "nearest", "":
		return RoundNearest, nil
	case "floor":
		return RoundFloor, nil
	}
	return 0, fmt.Errorf("unknown gas rounding %q", s)
}

// Adjust multiplies a raw estimate by m and rounds to a whole gas unit.
// Results beyond uint64 saturate.
func Adjust(raw uint64, m *big.Rat, r Rounding) uint64 {
	x := new(big.Rat).Mul(new(big.Rat).SetUint64(raw), m)
	num, den := x.Num(), x.Denom()

	var q *big.Int
	switch r {
	case RoundFloor:
		q = new(big.Int).Quo(num, den)
	default:
		// floor((2n + d) / 2d)
		twice := new(big.Int).Lsh(num, 1)
		q = new(big.Int).Quo(twice.Add(twice, den), new(big.Int).Lsh(den, 1))
	}
	if !q.IsUint64() {
		return math.MaxUint64
	}
	return q.Uint64()
}
