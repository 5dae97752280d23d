package model

import (
	"fmt"
	"math"
	"strings"

	"github.com/openfluke/loom/nn"
)

// Optimizer applies the accumulated gradients to the model it was built for.
type Optimizer interface {
	Step() error
}

// OptimizerFactory binds a fresh optimizer to a model. The trainer calls it
// once per run, so no state carries over between runs.
type OptimizerFactory func(m Model) (Optimizer, error)

// AdamConfig holds Adam hyperparameters. Zero fields take the usual defaults.
type AdamConfig struct {
	LR          float64
	Beta1       float64
	Beta2       float64
	Eps         float64
	WeightDecay float64
}

func (c AdamConfig) withDefaults() AdamConfig {
	if c.LR == 0 {
		c.LR = 1e-3
	}
	if c.Beta1 == 0 {
		c.Beta1 = 0.9
	}
	if c.Beta2 == 0 {
		c.Beta2 = 0.999
	}
	if c.Eps == 0 {
		c.Eps = 1e-8
	}
	return c
}

// Adam returns a factory for Adam. Parameter models get a per-buffer
// implementation; a DepixCNN is stepped by loom's AdamW.
func Adam(cfg AdamConfig) OptimizerFactory {
	cfg = cfg.withDefaults()
	return func(m Model) (Optimizer, error) {
		switch mm := m.(type) {
		case ParamModel:
			return newAdam(mm.Params(), cfg), nil
		case *DepixCNN:
			mm.useOptimizer(nn.NewAdamWOptimizer(float32(cfg.Beta1), float32(cfg.Beta2), float32(cfg.Eps), float32(cfg.WeightDecay)))
			return depixStep{m: mm, lr: float32(cfg.LR)}, nil
		default:
			return nil, fmt.Errorf("optim: adam cannot drive %T", m)
		}
	}
}

// SGD returns a factory for stochastic gradient descent with optional
// momentum.
func SGD(lr, momentum float64) OptimizerFactory {
	return func(m Model) (Optimizer, error) {
		switch mm := m.(type) {
		case ParamModel:
			return newSGD(mm.Params(), lr, momentum), nil
		case *DepixCNN:
			var rule nn.Optimizer
			if momentum != 0 {
				rule = nn.NewSGDOptimizerWithMomentum(float32(momentum), 0, false)
			}
			mm.useOptimizer(rule)
			return depixStep{m: mm, lr: float32(lr)}, nil
		default:
			return nil, fmt.Errorf("optim: sgd cannot drive %T", m)
		}
	}
}

// depixStep drives the update rule installed on a DepixCNN's network.
type depixStep struct {
	m  *DepixCNN
	lr float32
}

func (s depixStep) Step() error { return s.m.step(s.lr) }

type adam struct {
	params []Param
	cfg    AdamConfig
	m, v   [][]float64
	t      int
}

func newAdam(params []Param, cfg AdamConfig) *adam {
	a := &adam{params: params, cfg: cfg}
	for _, p := range params {
		a.m = append(a.m, make([]float64, len(p.Value)))
		a.v = append(a.v, make([]float64, len(p.Value)))
	}
	return a
}

func (a *adam) Step() error {
	a.t++
	c := a.cfg
	bc1 := 1 - math.Pow(c.Beta1, float64(a.t))
	bc2 := 1 - math.Pow(c.Beta2, float64(a.t))
	for i, p := range a.params {
		m, v := a.m[i], a.v[i]
		// Decoupled decay on weights only, as in loom's AdamW.
		decay := c.WeightDecay != 0 && !strings.HasSuffix(p.Name, ".bias")
		for j, g32 := range p.Grad {
			g := float64(g32)
			m[j] = c.Beta1*m[j] + (1-c.Beta1)*g
			v[j] = c.Beta2*v[j] + (1-c.Beta2)*g*g
			mHat := m[j] / bc1
			vHat := v[j] / bc2
			update := mHat / (math.Sqrt(vHat) + c.Eps)
			if decay {
				update += c.WeightDecay * float64(p.Value[j])
			}
			p.Value[j] -= float32(c.LR * update)
		}
	}
	return nil
}

type sgd struct {
	params   []Param
	lr       float64
	momentum float64
	velocity [][]float64
}

func newSGD(params []Param, lr, momentum float64) *sgd {
	s := &sgd{params: params, lr: lr, momentum: momentum}
	if momentum != 0 {
		for _, p := range params {
			s.velocity = append(s.velocity, make([]float64, len(p.Value)))
		}
	}
	return s
}

func (s *sgd) Step() error {
	for i, p := range s.params {
		for j, g32 := range p.Grad {
			g := float64(g32)
			if s.momentum != 0 {
				s.velocity[i][j] = s.momentum*s.velocity[i][j] + g
				g = s.velocity[i][j]
			}
			p.Value[j] -= float32(s.lr * g)
		}
	}
	return nil
}
