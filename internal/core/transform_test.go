package core

import (
	"errors"
	"testing"
	"time"
)

func sampleRecord(t *testing.T, s string) Record {
	t.Helper()
	n, err := ParseDecimal(s)
	if err != nil {
		t.Fatal(err)
	}
	return Record{
		IdentityCode:   "123.456.789-09",
		HolderName:     "Ana Souza",
		BirthDate:      time.Date(1990, 5, 20, 0, 0, 0, 0, time.UTC),
		EventName:      "Rock Fest",
		EventDate:      time.Date(2024, 11, 2, 0, 0, 0, 0, time.UTC),
		TicketCategory: "VIP",
		Amount:         n,
		Source:         "dados.csv",
		Line:           7,
	}
}

func TestParseFeeSchedule(t *testing.T) {
	fs, err := ParseFeeSchedule([]string{"VIP=15.00", " standard = 5 "}, "2.50")
	if err != nil {
		t.Fatalf("ParseFeeSchedule() error = %v", err)
	}

	tests := []struct {
		category string
		want     string
	}{
		{"VIP", "15.00"},
		{"vip", "15.00"},
		{"Standard", "5"},
		{"Student", "2.50"},
		{"", "2.50"},
	}
	for _, tt := range tests {
		if got := FormatDecimal(fs.Fee(tt.category)); got != tt.want {
			t.Errorf("Fee(%q) = %q, want %q", tt.category, got, tt.want)
		}
	}
}

func TestParseFeeSchedule_Errors(t *testing.T) {
	tests := []struct {
		name       string
		entries    []string
		defaultFee string
	}{
		{name: "bad default", defaultFee: "x"},
		{name: "negative default", defaultFee: "-1"},
		{name: "missing equals", entries: []string{"VIP"}, defaultFee: "0"},
		{name: "empty category", entries: []string{"=3"}, defaultFee: "0"},
		{name: "bad amount", entries: []string{"VIP=abc"}, defaultFee: "0"},
		{name: "negative fee", entries: []string{"VIP=-3"}, defaultFee: "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseFeeSchedule(tt.entries, tt.defaultFee); err == nil {
				t.Error("ParseFeeSchedule() expected error")
			}
		})
	}
}

func TestTransformer_Transform(t *testing.T) {
	fees, _ := ParseFeeSchedule([]string{"VIP=15.00"}, "0.00")
	now := time.Date(2025, 1, 10, 9, 30, 0, 0, time.FixedZone("BRT", -3*3600))
	tr := NewTransformer(fees, func() time.Time { return now })

	in := sampleRecord(t, "150.00")
	out, err := tr.Transform(in)
	if err != nil {
		t.Fatalf("Transform() error = %v", err)
	}

	if !out.ImportedAt.Equal(now) || out.ImportedAt.Location() != time.UTC {
		t.Errorf("ImportedAt = %v, want %v in UTC", out.ImportedAt, now)
	}
	if got := FormatDecimal(out.AdminFee); got != "15.00" {
		t.Errorf("AdminFee = %q, want 15.00", got)
	}
	if out.IdentityCode != in.IdentityCode || FormatDecimal(out.Amount) != "150.00" {
		t.Error("Transform() changed input fields")
	}
	if !in.ImportedAt.IsZero() {
		t.Error("Transform() mutated its input")
	}
}

func TestTransformer_MonotonicStamp(t *testing.T) {
	base := time.Date(2025, 1, 10, 12, 0, 0, 0, time.UTC)
	clock := []time.Time{base, base.Add(-time.Minute), base.Add(time.Second)}
	i := 0
	tr := NewTransformer(FeeSchedule{}, func() time.Time {
		ts := clock[i]
		i++
		return ts
	})

	var stamps []time.Time
	for range clock {
		out, err := tr.Transform(sampleRecord(t, "1"))
		if err != nil {
			t.Fatal(err)
		}
		stamps = append(stamps, out.ImportedAt)
	}

	for i := 1; i < len(stamps); i++ {
		if stamps[i].Before(stamps[i-1]) {
			t.Errorf("stamp %d (%v) before stamp %d (%v)", i, stamps[i], i-1, stamps[i-1])
		}
	}
	if !stamps[1].Equal(base) {
		t.Errorf("clock going backwards: stamp = %v, want clamped to %v", stamps[1], base)
	}
}

func TestTransformer_Validation(t *testing.T) {
	tr := NewTransformer(FeeSchedule{}, nil)

	tests := []struct {
		name      string
		mutate    func(*Record)
		wantField string
	}{
		{name: "negative amount", mutate: func(r *Record) { r.Amount, _ = ParseDecimal("-0.01") }, wantField: "amount"},
		{name: "short identity code", mutate: func(r *Record) { r.IdentityCode = "123.456.789" }, wantField: "identity_code"},
		{name: "letters in identity code", mutate: func(r *Record) { r.IdentityCode = "1234567890a" }, wantField: "identity_code"},
		{name: "empty holder", mutate: func(r *Record) { r.HolderName = "" }, wantField: "holder_name"},
		{name: "empty event", mutate: func(r *Record) { r.EventName = "" }, wantField: "event_name"},
		{name: "empty category", mutate: func(r *Record) { r.TicketCategory = "" }, wantField: "ticket_category"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := sampleRecord(t, "10")
			tt.mutate(&rec)

			_, err := tr.Transform(rec)
			var ve *ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Transform() error = %v, want *ValidationError", err)
			}
			if ve.Field != tt.wantField {
				t.Errorf("Field = %q, want %q", ve.Field, tt.wantField)
			}
			if ve.Source != "dados.csv" || ve.Line != 7 {
				t.Errorf("location = %s:%d, want dados.csv:7", ve.Source, ve.Line)
			}
		})
	}
}

func TestTransformer_ZeroAmountAllowed(t *testing.T) {
	tr := NewTransformer(FeeSchedule{}, nil)
	if _, err := tr.Transform(sampleRecord(t, "0")); err != nil {
		t.Errorf("Transform(amount 0) error = %v", err)
	}
}
