package httpapi

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/simonpierreboucher02/cadcoin-ledger/internal/ledgerrors"
)

func TestClassify_MapsSentinelsToStatusCodes(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"validation", ledgerrors.Validation("bad input"), http.StatusBadRequest},
		{"admission", ledgerrors.Admission("rejected"), http.StatusBadRequest},
		{"not found", ledgerrors.NotFound("missing"), http.StatusNotFound},
		{"contention", ledgerrors.Contention("conflict"), http.StatusConflict},
		{"timeout", ledgerrors.Timeout("too slow"), http.StatusGatewayTimeout},
		{"persistence", ledgerrors.Persistence("db down"), http.StatusInternalServerError},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			he := classify(c.err)
			assert.Equal(t, c.code, he.Code)
		})
	}
}

func TestClassify_PersistenceMessageDoesNotLeakInternals(t *testing.T) {
	he := classify(ledgerrors.Persistence("pq: connection refused to 10.0.0.5:5432"))
	assert.Equal(t, "internal server error", he.Message)
}

func TestClassify_UnrecognizedErrorFallsBackTo500(t *testing.T) {
	he := classify(plainError("something went wrong"))
	assert.Equal(t, http.StatusInternalServerError, he.Code)
}

type plainError string

func (e plainError) Error() string { return string(e) }
