package otelexport

import (
	"context"
	"testing"
	"time"
)

func TestNew_EmptyEndpoint(t *testing.T) {
	_, err := New(context.Background(), Config{})
	if err == nil {
		t.Error("expected error for empty endpoint")
	}
}

func TestExporter_Shutdown_NilExporter(t *testing.T) {
	var exp *Exporter
	if err := exp.Shutdown(context.Background()); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNew_HTTPWithoutCollector(t *testing.T) {
	exp, err := New(context.Background(), Config{
		Endpoint: "127.0.0.1:4318",
		Protocol: "http",
		Insecure: true,
		Headers:  map[string]string{"x-token": "t"},
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if exp.Tracer("test") == nil {
		t.Fatal("expected tracer")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := exp.Shutdown(ctx); err != nil {
		t.Errorf("shutdown with no spans: %v", err)
	}
}

func TestProtocolName(t *testing.T) {
	tests := map[string]string{"grpc": "grpc", "http": "http", "": "grpc", "quic": "grpc"}
	for in, want := range tests {
		if got := protocolName(in); got != want {
			t.Errorf("protocolName(%q) = %q, want %q", in, got, want)
		}
	}
}
