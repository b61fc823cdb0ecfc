package core

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgtype"
)

// identityCodeRegex accepts the fixed personal identifier format, either
// punctuated (123.456.789-09) or as 11 bare digits.
var identityCodeRegex = regexp.MustCompile(`^(\d{3}\.\d{3}\.\d{3}-\d{2}|\d{11})$`)

// FeeSchedule maps ticket categories to administrative fees.
type FeeSchedule struct {
	byCategory map[string]pgtype.Numeric
	fallback   pgtype.Numeric
}

// ParseFeeSchedule builds a schedule from "category=amount" entries and a
// default fee for categories not listed. Categories match case-insensitively.
func ParseFeeSchedule(entries []string, defaultFee string) (FeeSchedule, error) {
	fallback, err := ParseDecimal(defaultFee)
	if err != nil {
		return FeeSchedule{}, fmt.Errorf("default fee: %w", err)
	}
	if IsNegative(fallback) {
		return FeeSchedule{}, fmt.Errorf("default fee %q must not be negative", defaultFee)
	}

	fs := FeeSchedule{
		byCategory: make(map[string]pgtype.Numeric, len(entries)),
		fallback:   fallback,
	}
	for _, entry := range entries {
		category, amount, ok := strings.Cut(entry, "=")
		category = strings.ToLower(strings.TrimSpace(category))
		if !ok || category == "" {
			return FeeSchedule{}, fmt.Errorf("fee entry %q: want category=amount", entry)
		}
		fee, err := ParseDecimal(amount)
		if err != nil {
			return FeeSchedule{}, fmt.Errorf("fee entry %q: %w", entry, err)
		}
		if IsNegative(fee) {
			return FeeSchedule{}, fmt.Errorf("fee entry %q: fee must not be negative", entry)
		}
		fs.byCategory[category] = fee
	}
	return fs, nil
}

// Fee returns the fee for a ticket category.
func (fs FeeSchedule) Fee(category string) pgtype.Numeric {
	if fee, ok := fs.byCategory[strings.ToLower(strings.TrimSpace(category))]; ok {
		return fee
	}
	return fs.fallback
}

// Transformer stamps and enriches records between parse and write.
// It performs no I/O. Not safe for concurrent use; runs are sequential.
type Transformer struct {
	fees FeeSchedule
	now  func() time.Time
	last time.Time
}

// NewTransformer creates a transformer. now defaults to time.Now.
func NewTransformer(fees FeeSchedule, now func() time.Time) *Transformer {
	if now == nil {
		now = time.Now
	}
	return &Transformer{fees: fees, now: now}
}

// Transform validates rec, stamps its import time and computes the admin fee.
// Domain rule violations are returned as *ValidationError.
func (t *Transformer) Transform(rec Record) (Record, error) {
	if err := validate(rec); err != nil {
		return Record{}, err
	}

	// The stamp never moves backwards, even if the wall clock does.
	ts := t.now().UTC()
	if ts.Before(t.last) {
		ts = t.last
	}
	t.last = ts

	rec.ImportedAt = ts
	rec.AdminFee = t.fees.Fee(rec.TicketCategory)
	return rec, nil
}

func validate(rec Record) error {
	fail := func(field, value, rule string) error {
		return &ValidationError{Source: rec.Source, Line: rec.Line, Field: field, Value: value, Rule: rule}
	}

	if !identityCodeRegex.MatchString(rec.IdentityCode) {
		return fail(FieldNames[fieldIdentityCode], rec.IdentityCode, "must be 11 digits or ddd.ddd.ddd-dd")
	}
	if rec.HolderName == "" {
		return fail(FieldNames[fieldHolderName], rec.HolderName, "must not be empty")
	}
	if rec.EventName == "" {
		return fail(FieldNames[fieldEventName], rec.EventName, "must not be empty")
	}
	if rec.TicketCategory == "" {
		return fail(FieldNames[fieldTicketCategory], rec.TicketCategory, "must not be empty")
	}
	if IsNegative(rec.Amount) {
		return fail(FieldNames[fieldAmount], FormatDecimal(rec.Amount), "must be >= 0")
	}
	return nil
}
