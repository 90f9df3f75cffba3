package frontier

import (
	"context"
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

var (
	errIterationLimit = errors.New("active set did not converge within the iteration limit")
	errSingularKKT    = errors.New("KKT system is singular")
)

// qpProblem is min ½xᵀQx + cᵀx  s.t.  Ax = b, x ≥ 0.
// Q must be positive definite and A must have full row rank.
type qpProblem struct {
	Q *mat.SymDense
	c []float64 // nil means zero
	A *mat.Dense
	b []float64
}

type qpSolution struct {
	x          []float64
	iterations int
}

// solveActiveSet runs a primal active-set method starting from a feasible x0.
// The working set starts empty; bounds are added as they block a step and
// released while their multiplier is negative.
func solveActiveSet(ctx context.Context, p qpProblem, x0 []float64, maxIter int) (*qpSolution, error) {
	n := len(x0)
	m, _ := p.A.Dims()

	x := append([]float64(nil), x0...)
	working := make([]bool, n)

	lambdaTol := 1e-12 * (1 + maxAbsSym(p.Q))

	for iter := 1; iter <= maxIter; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		free := freeIndices(working)
		if len(free) == 0 {
			return nil, errSingularKKT
		}

		xStar, nu, err := solveEqualityQP(p, free, m)
		if err != nil {
			return nil, err
		}

		// ratio test along x → x*
		alpha, blocking := 1.0, -1
		for k, i := range free {
			if xStar[k] < 0 && xStar[k] < x[i] {
				ratio := x[i] / (x[i] - xStar[k])
				if ratio < alpha {
					alpha, blocking = ratio, i
				}
			}
		}

		for k, i := range free {
			x[i] += alpha * (xStar[k] - x[i])
		}

		if blocking >= 0 {
			x[blocking] = 0
			working[blocking] = true
			continue
		}

		// full step: release the bound with the most negative multiplier
		release, worst := -1, -lambdaTol
		grad := lagrangianGradient(p, x, nu)
		for i := 0; i < n; i++ {
			if working[i] && grad[i] < worst {
				release, worst = i, grad[i]
			}
		}

		if release < 0 {
			for i := range x {
				if x[i] < 0 {
					x[i] = 0
				}
			}
			return &qpSolution{x: x, iterations: iter}, nil
		}
		working[release] = false
	}

	return nil, errIterationLimit
}

// solveEqualityQP solves the KKT system restricted to the free variables:
//
//	[Q_FF  A_Fᵀ] [x_F]   [-c_F]
//	[A_F    0  ] [ ν ] = [  b ]
func solveEqualityQP(p qpProblem, free []int, m int) ([]float64, []float64, error) {
	k := len(free)
	size := k + m

	kkt := mat.NewDense(size, size, nil)
	rhs := mat.NewVecDense(size, nil)

	for r, i := range free {
		for c, j := range free {
			kkt.Set(r, c, p.Q.At(i, j))
		}
		for e := 0; e < m; e++ {
			kkt.Set(r, k+e, p.A.At(e, i))
			kkt.Set(k+e, r, p.A.At(e, i))
		}
		if p.c != nil {
			rhs.SetVec(r, -p.c[i])
		}
	}
	for e := 0; e < m; e++ {
		rhs.SetVec(k+e, p.b[e])
	}

	var sol mat.VecDense
	if err := sol.SolveVec(kkt, rhs); err != nil {
		return nil, nil, fmt.Errorf("%w: %v", errSingularKKT, err)
	}

	xF := make([]float64, k)
	nu := make([]float64, m)
	for r := 0; r < k; r++ {
		xF[r] = sol.AtVec(r)
	}
	for e := 0; e < m; e++ {
		nu[e] = sol.AtVec(k + e)
	}

	for _, v := range xF {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, nil, errSingularKKT
		}
	}
	return xF, nu, nil
}

// lagrangianGradient returns Qx + c + Aᵀν, the bound multipliers at x
func lagrangianGradient(p qpProblem, x, nu []float64) []float64 {
	n := len(x)
	xv := mat.NewVecDense(n, append([]float64(nil), x...))

	var g mat.VecDense
	g.MulVec(p.Q, xv)

	var atNu mat.VecDense
	atNu.MulVec(p.A.T(), mat.NewVecDense(len(nu), append([]float64(nil), nu...)))
	g.AddVec(&g, &atNu)

	out := make([]float64, n)
	for i := range out {
		out[i] = g.AtVec(i)
		if p.c != nil {
			out[i] += p.c[i]
		}
	}
	return out
}

func freeIndices(working []bool) []int {
	free := make([]int, 0, len(working))
	for i, w := range working {
		if !w {
			free = append(free, i)
		}
	}
	return free
}

func maxAbsSym(s *mat.SymDense) float64 {
	n := s.SymmetricDim()
	largest := 0.0
	for i := 0; i < n; i++ {
		for j := i; j < n; j++ {
			largest = math.Max(largest, math.Abs(s.At(i, j)))
		}
	}
	return largest
}
