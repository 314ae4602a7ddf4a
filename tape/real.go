package tape

import "math"

// Real is a value that may be tracked on a tape. The zero value is the untracked constant 0.
type Real struct {
	t   *Tape
	gen int
	idx int
	val float64
}

// Const is an untracked value.
func Const(v float64) Real { return Real{idx: -1, val: v} }

func (a Real) Value() float64 { return a.val }

// Tracked reports whether a depends on the recording.
func (a Real) Tracked() bool { return a.t != nil && a.idx >= 0 }

func (a Real) index() int {
	if a.t == nil {
		return -1
	}
	return a.idx
}

func pick(a, b Real) *Tape {
	if a.t != nil {
		return a.t
	}
	return b.t
}

func unary(a Real, val, partial float64) Real {
	if a.t == nil {
		return Const(val)
	}
	if !a.t.check(a) {
		return Const(val)
	}
	return a.t.record(val, operand{a.idx, partial})
}

func binary(a, b Real, val, pa, pb float64) Real {
	t := pick(a, b)
	if t == nil {
		return Const(val)
	}
	if !t.check(a) || !t.check(b) {
		return Const(val)
	}
	return t.record(val, operand{a.index(), pa}, operand{b.index(), pb})
}

func (a Real) Add(b Real) Real { return binary(a, b, a.val+b.val, 1, 1) }
func (a Real) Sub(b Real) Real { return binary(a, b, a.val-b.val, 1, -1) }
func (a Real) Mul(b Real) Real { return binary(a, b, a.val*b.val, b.val, a.val) }

func (a Real) Div(b Real) Real {
	q := a.val / b.val
	return binary(a, b, q, 1/b.val, -q/b.val)
}

func (a Real) Neg() Real              { return unary(a, -a.val, -1) }
func (a Real) AddConst(c float64) Real { return unary(a, a.val+c, 1) }
func (a Real) Scale(c float64) Real    { return unary(a, a.val*c, c) }

// Pow raises a to a constant power.
func (a Real) Pow(p float64) Real {
	v := math.Pow(a.val, p)
	return unary(a, v, p*math.Pow(a.val, p-1))
}

func (a Real) Sqrt() Real {
	v := math.Sqrt(a.val)
	return unary(a, v, 0.5/v)
}

func (a Real) Exp() Real {
	v := math.Exp(a.val)
	return unary(a, v, v)
}

func (a Real) Log() Real { return unary(a, math.Log(a.val), 1/a.val) }
func (a Real) Sin() Real { return unary(a, math.Sin(a.val), math.Cos(a.val)) }
func (a Real) Cos() Real { return unary(a, math.Cos(a.val), -math.Sin(a.val)) }

// MulAdd returns a + b*c, recorded as one statement.
func (a Real) MulAdd(b, c Real) Real {
	t := pick(a, b)
	if t == nil {
		t = c.t
	}
	val := a.val + b.val*c.val
	if t == nil {
		return Const(val)
	}
	if !t.check(a) || !t.check(b) || !t.check(c) {
		return Const(val)
	}
	return t.record(val, operand{a.index(), 1}, operand{b.index(), c.val}, operand{c.index(), b.val})
}

// Dot is sum_i a[i]*b[i].
func Dot(a, b []Real) (s Real) {
	s = Const(0)
	for i := range a {
		s = s.MulAdd(a[i], b[i])
	}
	return
}

// Values copies the numeric values of rs into dst.
func Values(rs []Real, dst []float64) {
	for i, r := range rs {
		dst[i] = r.val
	}
}

// LinComb is sum_i c[i]*x[i] for constant coefficients, recorded as one statement.
func LinComb(c []float64, x []Real) Real {
	var (
		t   *Tape
		val float64
	)
	for i := range x {
		val += c[i] * x[i].val
		if t == nil {
			t = x[i].t
		}
	}
	if t == nil {
		return Const(val)
	}
	ops := make([]operand, 0, len(x))
	for i := range x {
		if !t.check(x[i]) {
			return Const(val)
		}
		if c[i] != 0 {
			ops = append(ops, operand{x[i].index(), c[i]})
		}
	}
	return t.record(val, ops...)
}
