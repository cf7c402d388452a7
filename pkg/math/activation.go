package math

import "math"

// Activation is an element-wise capability applied with Map or MapInPlace
type Activation func(float64) float64

// Gelu applies the GELU activation function (tanh approximation)
func Gelu(x float64) float64 {
	return 0.5 * x * (1.0 + math.Tanh(math.Sqrt(2.0/math.Pi)*(x+0.044715*math.Pow(x, 3))))
}

// GeluDerivative is d/dx of the tanh-approximated GELU
func GeluDerivative(x float64) float64 {
	const c1 = 0.044715
	sqrt2pi := math.Sqrt(2.0 / math.Pi)

	inner := sqrt2pi * (x + c1*x*x*x)
	tanhInner := math.Tanh(inner)
	dInner := sqrt2pi * (1.0 + 3.0*c1*x*x)
	sech2 := 1.0 - tanhInner*tanhInner

	return 0.5*(1.0+tanhInner) + 0.5*x*sech2*dInner
}

func ReLU(x float64) float64 {
	return math.Max(0, x)
}

func ReLUDerivative(x float64) float64 {
	if x > 0 {
		return 1
	}
	return 0
}

func Sine(x float64) float64 {
	return math.Sin(x)
}

// SineDerivative is cos(x)
func SineDerivative(x float64) float64 {
	return math.Cos(x)
}
