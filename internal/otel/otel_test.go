package otel

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"go.opentelemetry.io/otel"
)

func TestInitStdoutExportsSpans(t *testing.T) {
	ctx := context.Background()
	var buf bytes.Buffer
	shutdown, err := Init(ctx, Config{ServiceName: "codecast-test", Stdout: true, Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}
	_, span := otel.Tracer("test").Start(ctx, "transport.Save")
	span.End()
	if err := shutdown(ctx); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "transport.Save") {
		t.Fatalf("span not exported: %s", buf.String())
	}
}
