package observability

import (
	"context"
	"testing"
)

func TestParseHeaders(t *testing.T) {
	got := ParseHeaders(" api-key = abc , bad, =x, tenant=upi ")
	if len(got) != 2 || got["api-key"] != "abc" || got["tenant"] != "upi" {
		t.Fatalf("ParseHeaders: got=%v", got)
	}
	if ParseHeaders("  ") != nil {
		t.Fatal("ParseHeaders blank: want nil")
	}
}

func TestClampRatio(t *testing.T) {
	if clampRatio(-1) != 0 || clampRatio(2) != 1 || clampRatio(0.25) != 0.25 {
		t.Fatal("clampRatio out of range")
	}
}

func TestInitOTelDisabledReturnsNoop(t *testing.T) {
	shutdown := InitOTel(context.Background(), nil, OtelConfig{Enabled: false})
	if shutdown == nil {
		t.Fatal("InitOTel: shutdown must not be nil")
	}
	if err := shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	if Tracer() == nil {
		t.Fatal("Tracer: want non-nil")
	}
}
