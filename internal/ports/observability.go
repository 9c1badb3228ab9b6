package ports

// Field is a structured log field.
type Field struct {
	Key   string
	Value any
}

// Observability emits logs and metrics for the pipeline. Implementations
// must tolerate unknown metric names by ignoring them.
type Observability interface {
	LogDebug(msg string, fields ...Field)
	LogInfo(msg string, fields ...Field)
	LogError(msg string, err error, fields ...Field)

	IncCounter(name string, v float64)
	SetGauge(name string, v float64)
	ObserveLatency(name string, seconds float64)
}
