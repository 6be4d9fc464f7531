package agent

import (
	"math"
	"testing"

	"gonum.org/v1/gonum/mat"
)

func TestLinearForward(t *testing.T) {
	l := &linear{
		weight: mat.NewDense(2, 2, []float64{1, 2, 3, 4}),
		bias:   mat.NewDense(1, 2, []float64{0.5, -1}),
	}
	x := mat.NewDense(2, 2, []float64{
		1, 1,
		0, -1,
	})
	got := l.forward(x)
	want := mat.NewDense(2, 2, []float64{
		3.5, 6,
		-1.5, -5,
	})
	if !mat.EqualApprox(got, want, 1e-12) {
		t.Fatalf("want %v, got %v", mat.Formatted(want), mat.Formatted(got))
	}
}

func TestLinearInitBounds(t *testing.T) {
	l := newLinear(16, 8, newRand(7))
	bound := 1 / math.Sqrt(16)
	check := func(name string, m *mat.Dense) {
		r, c := m.Dims()
		for i := 0; i < r; i++ {
			for j := 0; j < c; j++ {
				if v := m.At(i, j); v < -bound || v > bound {
					t.Errorf("%s[%d][%d] = %v outside ±%v", name, i, j, v, bound)
				}
			}
		}
	}
	check("weight", l.weight)
	check("bias", l.bias)
	if r, c := l.weight.Dims(); r != 8 || c != 16 {
		t.Fatalf("weight shape: want (8,16), got (%d,%d)", r, c)
	}
}

func TestRelu(t *testing.T) {
	m := mat.NewDense(1, 4, []float64{-2, 0, 0.5, 3})
	relu(m)
	want := []float64{0, 0, 0.5, 3}
	for j, w := range want {
		if m.At(0, j) != w {
			t.Errorf("relu[%d]: want %v, got %v", j, w, m.At(0, j))
		}
	}
}

func TestBatchNormTrainNormalizesColumns(t *testing.T) {
	bn := newBatchNorm(2)
	x := mat.NewDense(4, 2, []float64{
		1, 10,
		2, 20,
		3, 30,
		4, 40,
	})
	y := bn.forward(x, true)
	for j := 0; j < 2; j++ {
		var mean, sq float64
		for i := 0; i < 4; i++ {
			mean += y.At(i, j)
		}
		mean /= 4
		for i := 0; i < 4; i++ {
			d := y.At(i, j) - mean
			sq += d * d
		}
		if math.Abs(mean) > 1e-9 {
			t.Errorf("column %d mean: want 0, got %v", j, mean)
		}
		if v := sq / 4; math.Abs(v-1) > 1e-3 {
			t.Errorf("column %d variance: want ~1, got %v", j, v)
		}
	}
	if x.At(0, 0) != 1 {
		t.Fatalf("forward modified its input")
	}
}

func TestBatchNormEvalUsesRunningStats(t *testing.T) {
	bn := newBatchNorm(1)
	bn.runningMean.Set(0, 0, 2)
	bn.runningVar.Set(0, 0, 4)
	bn.gamma.Set(0, 0, 3)
	bn.beta.Set(0, 0, 1)
	y := bn.forward(mat.NewDense(1, 1, []float64{6}), false)
	want := (6-2)/math.Sqrt(4+bnEps)*3 + 1
	if math.Abs(y.At(0, 0)-want) > 1e-12 {
		t.Fatalf("want %v, got %v", want, y.At(0, 0))
	}
}

func TestBatchNormAccumulate(t *testing.T) {
	bn := newBatchNorm(1)
	x := mat.NewDense(2, 1, []float64{1, 3})
	bn.accumulate(x)
	// batch mean 2, unbiased variance 2
	if got, want := bn.runningMean.At(0, 0), 0.1*2.0; math.Abs(got-want) > 1e-12 {
		t.Errorf("running mean: want %v, got %v", want, got)
	}
	if got, want := bn.runningVar.At(0, 0), 0.9*1+0.1*2.0; math.Abs(got-want) > 1e-12 {
		t.Errorf("running var: want %v, got %v", want, got)
	}
}

func TestBatchStats(t *testing.T) {
	x := mat.NewDense(3, 1, []float64{1, 2, 6})
	mean, biased, unbiased := batchStats(x)
	if mean[0] != 3 {
		t.Errorf("mean: want 3, got %v", mean[0])
	}
	if math.Abs(biased[0]-14.0/3) > 1e-12 {
		t.Errorf("biased variance: want %v, got %v", 14.0/3, biased[0])
	}
	if math.Abs(unbiased[0]-7) > 1e-12 {
		t.Errorf("unbiased variance: want 7, got %v", unbiased[0])
	}
	if _, _, u := batchStats(mat.NewDense(1, 1, []float64{5})); u != nil {
		t.Errorf("single row: expected nil unbiased variance, got %v", u)
	}
}

func TestHeadWidth(t *testing.T) {
	cases := map[int]int{64: 32, 33: 16, 2: 1, 1: 1}
	for latent, want := range cases {
		if got := headWidth(latent); got != want {
			t.Errorf("headWidth(%d): want %d, got %d", latent, want, got)
		}
	}
}
