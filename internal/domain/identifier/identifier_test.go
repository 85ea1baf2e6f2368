package identifier

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/service-workflow/internal/domain/entity"
)

var jan15 = time.Date(2025, 1, 15, 9, 30, 0, 0, time.UTC)

func TestGenerate_KnownFormats(t *testing.T) {
	tests := []struct {
		name  string
		kind  Kind
		code  string
		count int
		want  string
	}{
		{name: "job card seventh of month", kind: KindJobCard, code: "SC001", count: 6, want: "SC001-2025-01-0007"},
		{name: "first quotation of year", kind: KindQuotation, code: "SC001", count: 0, want: "SC001-QT-2025-0001"},
		{name: "twelfth quotation", kind: KindQuotation, code: "SC001", count: 11, want: "SC001-QT-2025-0012"},
		{name: "proforma", kind: KindProformaInvoice, code: "SC002", count: 41, want: "SC002-PI-2025-0042"},
		{name: "check-in slip", kind: KindCheckInSlip, code: "BLR", count: 2, want: "BLR-CIS-20250115-0003"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Generate(tt.kind, tt.code, jan15, tt.count)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestGenerate_InvalidInput(t *testing.T) {
	_, err := JobCardNumber("", jan15, 0)
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = QuotationNumber("SC001", jan15, -1)
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = JobCardNumber("SC001", jan15, maxSeq)
	assert.True(t, errors.Is(err, ErrInvalidInput))

	_, err = Generate(Kind("bogus"), "SC001", jan15, 0)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}

func TestGenerate_IsPure(t *testing.T) {
	a, err := JobCardNumber("SC001", jan15, 3)
	require.NoError(t, err)
	b, err := JobCardNumber("SC001", jan15, 3)
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestParse_RoundTrip(t *testing.T) {
	for _, kind := range []Kind{KindJobCard, KindQuotation, KindProformaInvoice, KindCheckInSlip} {
		t.Run(string(kind), func(t *testing.T) {
			number, err := Generate(kind, "SC-001", jan15, 6)
			require.NoError(t, err)

			parsed, err := Parse(kind, number)
			require.NoError(t, err)
			assert.Equal(t, "SC-001", parsed.Code)
			assert.Equal(t, 2025, parsed.Year)
			assert.Equal(t, 7, parsed.Seq)
		})
	}
}

func TestParse_Malformed(t *testing.T) {
	tests := []struct {
		kind   Kind
		number string
	}{
		{KindJobCard, "SC001-2025-13-0001"},
		{KindJobCard, "SC001-2025-01"},
		{KindQuotation, "SC001-PI-2025-0001"},
		{KindQuotation, "SC001-QT-2025-1"},
		{KindCheckInSlip, "SC001-CIS-20251340-0001"},
		{KindJobCard, "-2025-01-0001"},
	}
	for _, tt := range tests {
		_, err := Parse(tt.kind, tt.number)
		assert.ErrorIs(t, err, ErrInvalidInput, tt.number)
	}
}

func TestPeriod(t *testing.T) {
	start, end := Period(KindJobCard, jan15)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), end)

	start, end = Period(KindQuotation, jan15)
	assert.Equal(t, time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), end)

	start, end = Period(KindCheckInSlip, jan15)
	assert.Equal(t, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2025, 1, 16, 0, 0, 0, 0, time.UTC), end)
}

func TestKindForDocument(t *testing.T) {
	assert.Equal(t, KindQuotation, KindForDocument(entity.DocumentQuotation))
	assert.Equal(t, KindProformaInvoice, KindForDocument(entity.DocumentProformaInvoice))
	assert.Equal(t, KindCheckInSlip, KindForDocument(entity.DocumentCheckInSlip))
}

func TestCheckInSlipPrefix(t *testing.T) {
	assert.Equal(t, "BLR", CheckInSlipPrefix(&entity.ServiceCenter{Code: "SC001", CheckInSlipPrefix: "BLR"}))
	assert.Equal(t, "SC001", CheckInSlipPrefix(&entity.ServiceCenter{Code: "SC001", CheckInSlipPrefix: "  "}))
	assert.Equal(t, "", CheckInSlipPrefix(nil))
}
