// Package view renders analytics results for the outside world: numbers are
// rounded to five decimals and non-finite values become null. Nothing inside
// the engine rounds; only these types do.
package view

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
	"github.com/vmihailenco/msgpack/v5"
)

// Places is the number of decimals kept at the output boundary.
const Places = 5

var nan = Num(math.NaN())

// Num is a float64 that serializes rounded, with NaN and ±Inf as null.
type Num float64

// Valid reports whether n is finite.
func (n Num) Valid() bool {
	f := float64(n)
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func (n Num) decimal() decimal.Decimal {
	return decimal.NewFromFloat(float64(n)).Round(Places)
}

// Float returns the rounded value, or NaN when n is not finite.
func (n Num) Float() float64 {
	if !n.Valid() {
		return math.NaN()
	}
	return n.decimal().InexactFloat64()
}

func (n Num) MarshalJSON() ([]byte, error) {
	if !n.Valid() {
		return []byte("null"), nil
	}
	return []byte(n.decimal().String()), nil
}

func (n Num) EncodeMsgpack(enc *msgpack.Encoder) error {
	if !n.Valid() {
		return enc.EncodeNil()
	}
	return enc.EncodeFloat64(n.decimal().InexactFloat64())
}

// Nums converts a slice.
func Nums(xs []float64) []Num {
	if xs == nil {
		return nil
	}
	out := make([]Num, len(xs))
	for i, x := range xs {
		out[i] = Num(x)
	}
	return out
}

// Grid converts a slice of slices.
func Grid(xs [][]float64) [][]Num {
	if xs == nil {
		return nil
	}
	out := make([][]Num, len(xs))
	for i, row := range xs {
		out[i] = Nums(row)
	}
	return out
}

// Date formats a calendar date; the zero time renders empty.
func Date(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

// Dates formats a date index. Positional panels have none.
func Dates(ds []time.Time) []string {
	if ds == nil {
		return nil
	}
	out := make([]string, len(ds))
	for i, d := range ds {
		out[i] = Date(d)
	}
	return out
}
