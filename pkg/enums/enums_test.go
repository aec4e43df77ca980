package enums

import "testing"

func TestParseSignboardStatus(t *testing.T) {
	tests := []struct {
		in      string
		want    SignboardStatus
		wantErr bool
	}{
		{in: "in_stock", want: SignboardStatusInStock},
		{in: " Under_Repair ", want: SignboardStatusUnderRepair},
		{in: "scheduled_disposal", want: SignboardStatusScheduledDisposal},
		{in: "lost", wantErr: true},
		{in: "", wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseSignboardStatus(tt.in)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("expected error for %q", tt.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("unexpected error for %q: %v", tt.in, err)
		}
		if got != tt.want {
			t.Fatalf("ParseSignboardStatus(%q) = %s, want %s", tt.in, got, tt.want)
		}
	}
}

func TestQuantityChangeKind(t *testing.T) {
	if !QuantityChangeIncrease.IsValid() || !QuantityChangeDecrease.IsValid() {
		t.Fatalf("expected both kinds to be valid")
	}
	if QuantityChangeKind("set").IsValid() {
		t.Fatalf("unexpected valid kind")
	}
	if QuantityChangeIncrease.Sign() != 1 || QuantityChangeDecrease.Sign() != -1 {
		t.Fatalf("unexpected signs")
	}
	if _, err := ParseQuantityChangeKind("INCREASE"); err == nil {
		t.Fatalf("parse should be case sensitive")
	}
}

func TestOutboxEnums(t *testing.T) {
	if _, err := ParseOutboxEventType("signboard_deleted"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ParseOutboxAggregateType("vendor_order"); err == nil {
		t.Fatalf("expected unknown aggregate to fail")
	}
	if OutboxDLQErrorReason("timeout").IsValid() {
		t.Fatalf("unknown dlq reason should be invalid")
	}
}
