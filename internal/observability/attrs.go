package observability

import "go.opentelemetry.io/otel/attribute"

func attrEndpoint(v string) attribute.KeyValue { return attribute.String("endpoint", v) }
func attrStatus(v string) attribute.KeyValue   { return attribute.String("status", v) }
func attrStage(v string) attribute.KeyValue    { return attribute.String("stage", v) }
