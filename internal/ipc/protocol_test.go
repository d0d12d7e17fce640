package ipc_test

import (
	"testing"

	cgerrors "github.com/rohankatakam/codegraph/internal/errors"
	"github.com/rohankatakam/codegraph/internal/ipc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRequest_RejectsEmptyMethod(t *testing.T) {
	_, err := ipc.ParseRequest([]byte(`{"method":""}`))
	assert.ErrorIs(t, err, cgerrors.ErrInvalidRequest)
}

func TestParseRequest_RejectsMalformedJSON(t *testing.T) {
	_, err := ipc.ParseRequest([]byte(`not json`))
	assert.ErrorIs(t, err, cgerrors.ErrInvalidRequest)
}

func TestParseRequest_Valid(t *testing.T) {
	req, err := ipc.ParseRequest([]byte(`{"method":"ping"}`))
	require.NoError(t, err)
	assert.Equal(t, "ping", req.Method)
}

func TestParseSymbolAtParams_MissingParams(t *testing.T) {
	req, _ := ipc.ParseRequest([]byte(`{"method":"symbol_at"}`))
	_, err := ipc.ParseSymbolAtParams(req)
	assert.ErrorIs(t, err, cgerrors.ErrMissingParams)
}

func TestParseSymbolAtParams_Valid(t *testing.T) {
	req, _ := ipc.ParseRequest([]byte(`{"method":"symbol_at","params":{"file":"a.ts","line":5}}`))
	p, err := ipc.ParseSymbolAtParams(req)
	require.NoError(t, err)
	assert.Equal(t, "a.ts", p.File)
	assert.Equal(t, uint32(5), p.Line)
}

func TestParseSymbolIDParams_AppliesDefaultMaxResults(t *testing.T) {
	req, _ := ipc.ParseRequest([]byte(`{"method":"find_dependents","params":{"symbol_id":7}}`))
	p, err := ipc.ParseSymbolIDParams(req, ipc.DefaultDependentsMaxResults)
	require.NoError(t, err)
	assert.Equal(t, uint64(7), p.SymbolID)
	assert.Equal(t, ipc.DefaultDependentsMaxResults, p.MaxResults)
}

func TestNewRequest_StampsUniqueID(t *testing.T) {
	a := ipc.NewRequest("ping", nil)
	b := ipc.NewRequest("ping", nil)
	assert.NotEmpty(t, a.ID)
	assert.NotEqual(t, a.ID, b.ID)
}
