package otel

import (
	"context"
	"reflect"
	"testing"

	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInitInstallsTracerProvider(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	shutdown, err := Init(context.Background(), Config{
		ServiceName: "liqmined-test",
		Endpoint:    "localhost:4318",
		Insecure:    true,
	})
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() { _ = shutdown(context.Background()) })

	// Spans started via otel.Tracer must resolve to the SDK provider, not the
	// global no-op default.
	if _, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider); !ok {
		t.Fatalf("expected SDK tracer provider, got %T", otel.GetTracerProvider())
	}
}

func TestInitRequiresServiceName(t *testing.T) {
	if _, err := Init(context.Background(), Config{}); err == nil {
		t.Fatal("expected error when service name is missing")
	}
}

func TestParseHeaders(t *testing.T) {
	cases := map[string]map[string]string{
		"":                          {},
		"key=value":                 {"key": "value"},
		"a=1, b=2":                  {"a": "1", "b": "2"},
		"malformed, ok=yes, =skip ": {"ok": "yes"},
	}
	for raw, want := range cases {
		if got := ParseHeaders(raw); !reflect.DeepEqual(got, want) {
			t.Fatalf("ParseHeaders(%q) = %v, want %v", raw, got, want)
		}
	}
}
