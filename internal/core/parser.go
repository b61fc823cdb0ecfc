package core

import (
	"bufio"
	"fmt"
	"io"
	"iter"
	"strings"
	"unicode/utf8"
)

// Field positions of an input line.
const (
	fieldIdentityCode = iota
	fieldHolderName
	fieldBirthDate
	fieldEventName
	fieldEventDate
	fieldTicketCategory
	fieldAmount

	FieldCount // number of fields per line
)

// FieldNames names the input fields in order, as used in error messages.
var FieldNames = [FieldCount]string{
	"identity_code",
	"holder_name",
	"birth_date",
	"event_name",
	"event_date",
	"ticket_category",
	"amount",
}

// MaxLineLength bounds a single input line.
var MaxLineLength = 1024 * 1024

// Parser turns delimited lines into Records.
type Parser struct {
	delimiter     string
	commentPrefix string
}

// NewParser creates a parser. An empty commentPrefix disables comment skipping.
func NewParser(delimiter, commentPrefix string) *Parser {
	return &Parser{delimiter: delimiter, commentPrefix: commentPrefix}
}

// ParseLine parses one line. skip is true for comment and blank lines, in
// which case the record is empty and err is nil. The returned error is a
// *ParseError without Source and Line; Records fills them in.
func (p *Parser) ParseLine(line string) (rec Record, skip bool, err error) {
	if p.commentPrefix != "" && strings.HasPrefix(line, p.commentPrefix) {
		return Record{}, true, nil
	}
	if strings.TrimSpace(line) == "" {
		return Record{}, true, nil
	}
	if !utf8.ValidString(line) {
		return Record{}, false, &ParseError{Reason: "line is not valid UTF-8"}
	}

	fields := strings.Split(line, p.delimiter)
	if len(fields) != FieldCount {
		return Record{}, false, &ParseError{
			Reason: fmt.Sprintf("expected %d fields, got %d", FieldCount, len(fields)),
		}
	}
	for i := range fields {
		fields[i] = strings.TrimSpace(fields[i])
	}

	rec = Record{
		IdentityCode:   fields[fieldIdentityCode],
		HolderName:     fields[fieldHolderName],
		EventName:      fields[fieldEventName],
		TicketCategory: fields[fieldTicketCategory],
	}

	if rec.BirthDate, err = ParseDate(fields[fieldBirthDate]); err != nil {
		return Record{}, false, fieldError(fieldBirthDate, fields, "invalid date", err)
	}
	if rec.EventDate, err = ParseDate(fields[fieldEventDate]); err != nil {
		return Record{}, false, fieldError(fieldEventDate, fields, "invalid date", err)
	}
	if rec.Amount, err = ParseDecimal(fields[fieldAmount]); err != nil {
		return Record{}, false, fieldError(fieldAmount, fields, "invalid decimal", err)
	}

	return rec, false, nil
}

func fieldError(idx int, fields []string, reason string, err error) *ParseError {
	return &ParseError{
		Field:  FieldNames[idx],
		Value:  fields[idx],
		Reason: reason,
		Err:    err,
	}
}

// Records lazily parses r line by line. The sequence stops after yielding
// the first error. It reads r directly, so it can only be iterated once.
func (p *Parser) Records(r io.Reader, source string) iter.Seq2[Record, error] {
	return func(yield func(Record, error) bool) {
		scanner := bufio.NewScanner(r)
		scanner.Buffer(make([]byte, 0, 64*1024), MaxLineLength)

		lineNum := 0
		for scanner.Scan() {
			lineNum++

			rec, skip, err := p.ParseLine(scanner.Text())
			if err != nil {
				if pe, ok := err.(*ParseError); ok {
					pe.Source = source
					pe.Line = lineNum
				}
				yield(Record{}, err)
				return
			}
			if skip {
				continue
			}

			rec.Source = source
			rec.Line = lineNum
			if !yield(rec, nil) {
				return
			}
		}

		if err := scanner.Err(); err != nil {
			yield(Record{}, fmt.Errorf("read %s after line %d: %w", source, lineNum, err))
		}
	}
}
