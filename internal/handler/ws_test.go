package handler

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWSHandler_SubscribeRequiresUser(t *testing.T) {
	h := NewWSHandler()
	t.Cleanup(func() { h.Close() })

	rec := httptest.NewRecorder()
	h.Subscribe(rec, httptest.NewRequest(http.MethodGet, "/api/v1/ledger/ws", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestWSHandler_LedgerChangedWithoutSubscribers(t *testing.T) {
	h := NewWSHandler()

	assert.NotPanics(t, func() { h.LedgerChanged(uuid.New(), "add_transaction") })
	require.NoError(t, h.Close())
	assert.NotPanics(t, func() { h.LedgerChanged(uuid.New(), "reset") }, "broadcast after close is ignored")
}
