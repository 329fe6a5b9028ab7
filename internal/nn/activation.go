package nn

import (
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/floats"
)

// Activation is applied to each output row of a dense layer.
type Activation string

const (
	Linear     Activation = "linear"
	ReLU       Activation = "relu"
	Tanh       Activation = "tanh"
	Sigmoid    Activation = "sigmoid"
	Softmax    Activation = "softmax"
	LogSoftmax Activation = "log_softmax"
)

// ParseActivation accepts the activation names above, case-insensitively.
// The empty string is Linear.
func ParseActivation(s string) (Activation, error) {
	switch a := Activation(strings.ToLower(strings.TrimSpace(s))); a {
	case "":
		return Linear, nil
	case Linear, ReLU, Tanh, Sigmoid, Softmax, LogSoftmax:
		return a, nil
	case "logsoftmax":
		return LogSoftmax, nil
	default:
		return "", fmt.Errorf("unknown activation %q", s)
	}
}

// apply transforms row in place.
func (a Activation) apply(row []float64) {
	switch a {
	case ReLU:
		for i, v := range row {
			row[i] = math.Max(0, v)
		}
	case Tanh:
		for i, v := range row {
			row[i] = math.Tanh(v)
		}
	case Sigmoid:
		for i, v := range row {
			row[i] = 1 / (1 + math.Exp(-v))
		}
	case Softmax:
		lse := logSumExp(row)
		for i, v := range row {
			row[i] = math.Exp(v - lse)
		}
	case LogSoftmax:
		lse := logSumExp(row)
		floats.AddConst(-lse, row)
	}
}

func logSumExp(row []float64) float64 {
	if len(row) == 0 {
		return 0
	}
	max := floats.Max(row)
	var sum float64
	for _, v := range row {
		sum += math.Exp(v - max)
	}
	return max + math.Log(sum)
}
