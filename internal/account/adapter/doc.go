// Package adapter contains implementations of interfaces defined in app.
// SQLite, DynamoDB, Redis, and Secrets Manager adapters live here.
package adapter

import "go.opentelemetry.io/otel"

var tracer = otel.Tracer("account/adapter")
