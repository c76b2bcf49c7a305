// Package optimize implements the nonlinear least-squares solver used
// for force balance: a trust-region iteration whose subproblem is
// solved exactly in the SVD of the Jacobian. The Jacobian is dense and
// of moderate size, so one factorization per outer iteration buys exact
// steps for any trust radius at negligible extra cost.
package optimize

import (
	"context"
	"fmt"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// Problem is the least-squares system to solve: minimize
// 0.5 ||Residual(x)||^2 over x.
type Problem interface {
	Residual(x []float64) ([]float64, error)
	Jacobian(ctx context.Context, x, f []float64) (*mat.Dense, error)
}

// Options control the trust-region iteration. Zero values select the
// defaults.
type Options struct {
	FTol               float64 // relative cost reduction tolerance
	XTol               float64 // relative step norm tolerance
	GTol               float64 // gradient infinity-norm tolerance
	MaxIter            int
	InitialTrustRadius float64
	MaxTrustRadius     float64

	// Monitor, when set, is called after every accepted iterate.
	Monitor func(iter int, cost, gradNorm, radius float64)
}

func (o *Options) withDefaults() Options {
	out := *o
	if out.FTol == 0 {
		out.FTol = 1e-6
	}
	if out.XTol == 0 {
		out.XTol = 1e-6
	}
	if out.GTol == 0 {
		out.GTol = 1e-6
	}
	if out.MaxIter == 0 {
		out.MaxIter = 100
	}
	if out.InitialTrustRadius == 0 {
		out.InitialTrustRadius = 1e-3
	}
	if out.MaxTrustRadius == 0 {
		out.MaxTrustRadius = 1.0
	}
	return out
}

// Result is the solver output.
type Result struct {
	X        []float64
	Residual []float64
	Cost     float64
	GradNorm float64
	Iter     int
	NFev     int
	NJev     int
	Status   Status
}

// Solve runs the trust-region iteration from x0. The context cancels
// between (and inside, via the Jacobian) iterations.
func Solve(ctx context.Context, p Problem, x0 []float64, opts Options, log *zap.Logger) (*Result, error) {
	o := opts.withDefaults()
	if log == nil {
		log = zap.NewNop()
	}

	x := append([]float64(nil), x0...)
	f, err := p.Residual(x)
	if err != nil {
		return nil, fmt.Errorf("initial residual: %w", err)
	}
	res := &Result{NFev: 1}
	cost := 0.5 * dot(f, f)

	J, err := p.Jacobian(ctx, x, f)
	if err != nil {
		return nil, fmt.Errorf("initial jacobian: %w", err)
	}
	res.NJev++
	g := grad(J, f)

	radius := o.InitialTrustRadius
	status := StatusRunning
	iter := 0
	for status == StatusRunning {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if normInf(g) < o.GTol {
			status = StatusGtol
			break
		}
		if iter >= o.MaxIter {
			status = StatusMaxIter
			break
		}
		iter++

		var svd mat.SVD
		if !svd.Factorize(J, mat.SVDThin) {
			return nil, fmt.Errorf("jacobian SVD failed at iteration %d", iter)
		}
		sv := svd.Values(nil)
		var u, v mat.Dense
		svd.UTo(&u)
		svd.VTo(&v)
		utf := matTVec(&u, f)

		// Inner loop: shrink the radius until a step reduces the cost.
		var accepted bool
		var stepNorm, actual float64
		for !accepted {
			step := trustRegionStep(sv, &v, utf, radius)
			stepNorm = norm(step)

			xNew := make([]float64, len(x))
			for i := range x {
				xNew[i] = x[i] + step[i]
			}
			fNew, err := p.Residual(xNew)
			if err != nil {
				return nil, err
			}
			res.NFev++
			costNew := 0.5 * dot(fNew, fNew)
			actual = cost - costNew
			predicted := predictedReduction(J, g, step)

			ratio := 0.0
			if predicted > 0 {
				ratio = actual / predicted
			}
			if ratio < 0.25 {
				radius = 0.25 * stepNorm
			} else if ratio > 0.75 && stepNorm > 0.95*radius {
				radius = math.Min(2*radius, o.MaxTrustRadius)
			}

			if actual > 0 {
				accepted = true
				x, f, cost = xNew, fNew, costNew
				break
			}
			if stepNorm < o.XTol*(o.XTol+norm(x)) {
				status = StatusXtol
				break
			}
			if radius < 1e-14 {
				status = StatusStalled
				break
			}
		}
		if !accepted {
			break
		}

		J, err = p.Jacobian(ctx, x, f)
		if err != nil {
			return nil, err
		}
		res.NJev++
		g = grad(J, f)

		log.Debug("iteration",
			zap.Int("iter", iter),
			zap.Float64("cost", cost),
			zap.Float64("grad_norm", normInf(g)),
			zap.Float64("radius", radius),
		)
		if o.Monitor != nil {
			o.Monitor(iter, cost, normInf(g), radius)
		}

		if cost > 0 && actual < o.FTol*cost && actual >= 0 {
			status = StatusFtol
		} else if stepNorm < o.XTol*(o.XTol+norm(x)) {
			status = StatusXtol
		}
	}
	if status == StatusRunning {
		status = StatusMaxIter
	}

	res.X = x
	res.Residual = f
	res.Cost = cost
	res.GradNorm = normInf(g)
	res.Iter = iter
	res.Status = status
	log.Info("solver finished",
		zap.Int("iterations", iter),
		zap.Float64("cost", cost),
		zap.Float64("grad_norm", res.GradNorm),
		zap.String("status", status.String()),
	)
	return res, nil
}

// trustRegionStep solves min ||J p + f|| s.t. ||p|| <= radius exactly
// in the SVD of J. If the Gauss-Newton step fits inside the region it
// is returned as is; otherwise the Levenberg-Marquardt parameter alpha
// with ||p(alpha)|| = radius is found by Newton's iteration on the
// reciprocal norm, which is convex in alpha.
func trustRegionStep(sv []float64, v *mat.Dense, utf []float64, radius float64) []float64 {
	n, _ := v.Dims()
	k := len(sv)

	threshold := 1e-15
	if len(sv) > 0 {
		threshold = 1e-15 * sv[0]
	}

	// Gauss-Newton step first.
	full := true
	coef := make([]float64, k)
	for i := 0; i < k; i++ {
		if sv[i] > threshold {
			coef[i] = -utf[i] / sv[i]
		} else {
			full = false
		}
	}
	p := vecMul(v, coef)
	if norm(p) <= radius && full {
		return p
	}

	// phi(alpha) = ||p(alpha)|| - radius with
	// p(alpha) = -V diag(s/(s^2+alpha)) U^T f.
	pnorm := func(alpha float64) (float64, float64) {
		var n2, dn float64
		for i := 0; i < k; i++ {
			d := sv[i]*sv[i] + alpha
			t := sv[i] * utf[i] / d
			n2 += t * t
			dn += t * t / d
		}
		nrm := math.Sqrt(n2)
		if nrm == 0 {
			return 0, 0
		}
		return nrm, -dn / nrm
	}

	// Bracket and iterate on 1/||p|| which is nearly linear in alpha.
	alpha := 0.0
	if !full {
		alpha = threshold
	}
	for iter := 0; iter < 30; iter++ {
		nrm, dnrm := pnorm(alpha)
		phi := nrm - radius
		if math.Abs(phi) < 1e-10*radius {
			break
		}
		if dnrm == 0 {
			break
		}
		// Newton on phi with safeguarding against negative alpha.
		alphaNew := alpha - phi/dnrm*nrm/radius
		if alphaNew <= 0 {
			alphaNew = alpha/2 + 1e-3*sv[0]*sv[0]
		}
		alpha = alphaNew
	}
	for i := 0; i < k; i++ {
		d := sv[i]*sv[i] + alpha
		coef[i] = -sv[i] * utf[i] / d
	}
	p = vecMul(v, coef)
	// Clamp numerical overshoot onto the boundary.
	if pn := norm(p); pn > radius {
		scale := radius / pn
		for i := 0; i < n; i++ {
			p[i] *= scale
		}
	}
	return p
}

// predictedReduction is -(g.p + 0.5 ||J p||^2), the decrease the local
// quadratic model promises for the step p.
func predictedReduction(J *mat.Dense, g, p []float64) float64 {
	m, _ := J.Dims()
	jp := mat.NewVecDense(m, nil)
	jp.MulVec(J, mat.NewVecDense(len(p), p))
	var jp2 float64
	for i := 0; i < m; i++ {
		jp2 += jp.AtVec(i) * jp.AtVec(i)
	}
	return -(dot(g, p) + 0.5*jp2)
}

func grad(J *mat.Dense, f []float64) []float64 {
	_, n := J.Dims()
	g := mat.NewVecDense(n, nil)
	g.MulVec(J.T(), mat.NewVecDense(len(f), f))
	out := make([]float64, n)
	for i := range out {
		out[i] = g.AtVec(i)
	}
	return out
}

func matTVec(u *mat.Dense, f []float64) []float64 {
	_, k := u.Dims()
	out := mat.NewVecDense(k, nil)
	out.MulVec(u.T(), mat.NewVecDense(len(f), f))
	res := make([]float64, k)
	for i := range res {
		res[i] = out.AtVec(i)
	}
	return res
}

func vecMul(v *mat.Dense, coef []float64) []float64 {
	n, _ := v.Dims()
	out := mat.NewVecDense(n, nil)
	out.MulVec(v, mat.NewVecDense(len(coef), coef))
	res := make([]float64, n)
	for i := range res {
		res[i] = out.AtVec(i)
	}
	return res
}

func dot(a, b []float64) float64 {
	var s float64
	for i := range a {
		s += a[i] * b[i]
	}
	return s
}

func norm(a []float64) float64 { return math.Sqrt(dot(a, a)) }

func normInf(a []float64) float64 {
	var m float64
	for _, v := range a {
		if av := math.Abs(v); av > m {
			m = av
		}
	}
	return m
}
