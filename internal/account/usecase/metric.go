package usecase

import "go.opentelemetry.io/otel/attribute"

const (
	resultSuccess  = "success"
	resultFailure  = "failure"
	resultReplayed = "replayed"
	resultError    = "error"
)

func resultAttr(result string) attribute.KeyValue {
	return attribute.String("result", result)
}
