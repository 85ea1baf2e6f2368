// Package identifier derives human-readable document numbers from a service
// center code, a date and the count of prior documents in the same period.
//
// Numbering is read-then-number: seq = existingCount + 1. Two concurrent
// callers can compute the same number, so storage must keep the number column
// unique and callers recount and renumber once on a clash.
package identifier

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/garyjia/service-workflow/internal/domain/entity"
)

// Kind identifies the numbering scheme
type Kind string

const (
	KindJobCard         Kind = "job_card"
	KindQuotation       Kind = "quotation"
	KindProformaInvoice Kind = "proforma_invoice"
	KindCheckInSlip     Kind = "check_in_slip"
)

// ErrInvalidInput is returned for an empty code, negative count or malformed number
var ErrInvalidInput = errors.New("invalid identifier input")

const maxSeq = 9999

// KindForDocument maps a quotation document type to its numbering scheme
func KindForDocument(dt entity.DocumentType) Kind {
	switch dt {
	case entity.DocumentProformaInvoice:
		return KindProformaInvoice
	case entity.DocumentCheckInSlip:
		return KindCheckInSlip
	default:
		return KindQuotation
	}
}

// Period returns the half-open [start, end) window whose documents are
// counted for the given kind at date. The window is computed in date's location.
func Period(kind Kind, date time.Time) (time.Time, time.Time) {
	loc := date.Location()
	switch kind {
	case KindJobCard:
		start := time.Date(date.Year(), date.Month(), 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(0, 1, 0)
	case KindCheckInSlip:
		start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)
		return start, start.AddDate(0, 0, 1)
	default:
		start := time.Date(date.Year(), 1, 1, 0, 0, 0, 0, loc)
		return start, start.AddDate(1, 0, 0)
	}
}

// Generate derives the number for kind. For check-in slips code is the
// service center's slip prefix.
func Generate(kind Kind, code string, date time.Time, existingCount int) (string, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return "", fmt.Errorf("%w: service center code is required", ErrInvalidInput)
	}
	if existingCount < 0 {
		return "", fmt.Errorf("%w: existing count %d is negative", ErrInvalidInput, existingCount)
	}
	seq := existingCount + 1
	if seq > maxSeq {
		return "", fmt.Errorf("%w: sequence %d exceeds %d for %s", ErrInvalidInput, seq, maxSeq, kind)
	}

	switch kind {
	case KindJobCard:
		return fmt.Sprintf("%s-%04d-%02d-%04d", code, date.Year(), int(date.Month()), seq), nil
	case KindQuotation:
		return fmt.Sprintf("%s-QT-%04d-%04d", code, date.Year(), seq), nil
	case KindProformaInvoice:
		return fmt.Sprintf("%s-PI-%04d-%04d", code, date.Year(), seq), nil
	case KindCheckInSlip:
		return fmt.Sprintf("%s-CIS-%s-%04d", code, date.Format("20060102"), seq), nil
	default:
		return "", fmt.Errorf("%w: unknown kind %q", ErrInvalidInput, kind)
	}
}

// JobCardNumber yields {code}-{YYYY}-{MM}-{seq:04d}
func JobCardNumber(code string, date time.Time, existingCount int) (string, error) {
	return Generate(KindJobCard, code, date, existingCount)
}

// QuotationNumber yields {code}-QT-{YYYY}-{seq:04d}
func QuotationNumber(code string, date time.Time, existingCount int) (string, error) {
	return Generate(KindQuotation, code, date, existingCount)
}

// CheckInSlipPrefix picks the configured slip prefix, falling back to the center code
func CheckInSlipPrefix(sc *entity.ServiceCenter) string {
	if sc == nil {
		return ""
	}
	if p := strings.TrimSpace(sc.CheckInSlipPrefix); p != "" {
		return p
	}
	return sc.Code
}

// Parsed is the decoded form of a document number
type Parsed struct {
	Kind  Kind
	Code  string
	Year  int
	Month int
	Day   int
	Seq   int
}

// Parse decodes a number produced by Generate. Codes may themselves contain
// hyphens, so parsing works from the right.
func Parse(kind Kind, number string) (*Parsed, error) {
	parts := strings.Split(number, "-")
	if len(parts) < 4 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidInput, number)
	}
	n := len(parts)
	seq, err := parseFixed(parts[n-1], 4)
	if err != nil {
		return nil, fmt.Errorf("%w: bad sequence in %q", ErrInvalidInput, number)
	}
	code := strings.Join(parts[:n-3], "-")
	p := &Parsed{Kind: kind, Code: code, Seq: seq}

	switch kind {
	case KindJobCard:
		if p.Year, err = parseFixed(parts[n-3], 4); err != nil {
			break
		}
		p.Month, err = parseFixed(parts[n-2], 2)
		if err == nil && (p.Month < 1 || p.Month > 12) {
			err = errors.New("month out of range")
		}
	case KindQuotation, KindProformaInvoice:
		marker := "QT"
		if kind == KindProformaInvoice {
			marker = "PI"
		}
		if parts[n-3] != marker {
			err = fmt.Errorf("expected %s marker", marker)
			break
		}
		p.Code = strings.Join(parts[:n-3], "-")
		p.Year, err = parseFixed(parts[n-2], 4)
	case KindCheckInSlip:
		if parts[n-3] != "CIS" {
			err = errors.New("expected CIS marker")
			break
		}
		var day time.Time
		day, err = time.Parse("20060102", parts[n-2])
		if err == nil {
			p.Year, p.Month, p.Day = day.Year(), int(day.Month()), day.Day()
		}
	default:
		err = fmt.Errorf("unknown kind %q", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidInput, number, err)
	}
	if p.Code == "" {
		return nil, fmt.Errorf("%w: %q has no service center code", ErrInvalidInput, number)
	}
	return p, nil
}

func parseFixed(s string, width int) (int, error) {
	if len(s) != width {
		return 0, fmt.Errorf("want %d digits, got %q", width, s)
	}
	return strconv.Atoi(s)
}
