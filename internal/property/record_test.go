package property

import (
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
)

func TestRecordJSONKeepsVariant(t *testing.T) {
	fetchedAt := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	records := []Record{
		{
			Source: TaxPortal,
			PIN:    "01-01-120-006-0000",
			Payload: &TaxPortalData{
				Address:  Address{Street: "123 MAIN ST", City: "BARRINGTON"},
				TaxBills: []TaxBill{{Year: "2023", Status: PaymentPaid}},
			},
			FetchedAt: fetchedAt,
		},
		{
			Source:    Recorder,
			PIN:       "01-01-120-006-0000",
			Payload:   &RecorderData{Layout: LayoutNarrow, Documents: []Document{{Number: "1", Type: "DEED"}}},
			Error:     "row 3: missing document type",
			ErrorCode: CodeParseError,
			FetchedAt: fetchedAt,
		},
		{
			Source:    Clerk,
			PIN:       "01-01-120-006-0000",
			Error:     "no records",
			ErrorCode: CodeNotFound,
			FetchedAt: fetchedAt,
		},
	}

	for _, original := range records {
		serialized, err := json.Marshal(original)
		require.NoError(t, err)

		var decoded Record
		require.NoError(t, json.Unmarshal(serialized, &decoded))
		require.Empty(t, cmp.Diff(original, decoded))
	}
}

func TestPayloadSwitchIsExhaustive(t *testing.T) {
	for _, kind := range Sources() {
		payload, err := NewPayload(kind)
		require.NoError(t, err)
		require.Equal(t, kind, payload.Kind())
	}
	_, err := NewPayload("assessor")
	require.Error(t, err)
}

func TestErrorCodes(t *testing.T) {
	err := Errorf(CodeNotFound, Clerk, "no record for %s", "x")
	wrapped := errors.Join(errors.New("outer"), err)
	require.Equal(t, CodeNotFound, CodeOf(wrapped))
	require.Equal(t, CodeFetchError, CodeOf(errors.New("dial tcp: timeout")))

	require.Equal(t, http.StatusBadRequest, HTTPStatus(CodeInvalidPin))
	require.Equal(t, http.StatusNotFound, HTTPStatus(CodeNotFound))
	require.Equal(t, http.StatusBadGateway, HTTPStatus(CodeParseError))
	require.Equal(t, http.StatusBadGateway, HTTPStatus(CodeFetchError))
	require.Equal(t, http.StatusServiceUnavailable, HTTPStatus(CodeBackendUnavailable))
}

func TestErrorRecord(t *testing.T) {
	rec := ErrorRecord(GIS, "01-01-120-006-0000", time.Time{}, Errorf(CodeFetchError, GIS, "timeout"))
	require.True(t, rec.Failed())
	require.False(t, rec.HasData())
	require.Equal(t, "timeout", rec.Error)
	require.Equal(t, CodeFetchError, rec.ErrorCode)
}
