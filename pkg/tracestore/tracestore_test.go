package tracestore_test

import (
	"testing"
	"time"

	"github.com/Mindburn-Labs/caprouter/pkg/tracestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAndGet_RoundTrips(t *testing.T) {
	s := tracestore.New()
	id := s.Create()
	require.NotEmpty(t, id)

	s.Record(id, tracestore.EventRequest, map[string]any{"capability": "patient.search"})

	tr, ok := s.Get(id)
	require.True(t, ok)
	assert.Equal(t, id, tr.ID)
	require.Len(t, tr.Events, 1)
	assert.Equal(t, tracestore.EventRequest, tr.Events[0].Type)
}

func TestRecord_UnknownIDIsNoOp(t *testing.T) {
	s := tracestore.New()
	s.Record("does-not-exist", tracestore.EventRequest, nil)
	_, ok := s.Get("does-not-exist")
	assert.False(t, ok)
}

func TestGet_ExpiredTraceIsAbsentAndDeleted(t *testing.T) {
	s := tracestore.New(tracestore.WithTTL(10 * time.Millisecond))
	id := s.Create()

	time.Sleep(15 * time.Millisecond)

	_, ok := s.Get(id)
	assert.False(t, ok)

	// Recording after expiry is a no-op, not a panic or resurrection.
	s.Record(id, tracestore.EventRequest, nil)
	_, ok = s.Get(id)
	assert.False(t, ok)
}

func TestCreate_MaxTracesOneRetainsOnlyLatest(t *testing.T) {
	s := tracestore.New(tracestore.WithMaxTraces(1))

	first := s.Create()
	second := s.Create()

	_, ok := s.Get(first)
	assert.False(t, ok)

	_, ok = s.Get(second)
	assert.True(t, ok)
}

func TestCreate_MaxTracesTwoEvictsOldestAfterThree(t *testing.T) {
	s := tracestore.New(tracestore.WithMaxTraces(2))

	first := s.Create()
	second := s.Create()
	third := s.Create()

	_, ok := s.Get(first)
	assert.False(t, ok)

	_, ok = s.Get(second)
	assert.True(t, ok)
	_, ok = s.Get(third)
	assert.True(t, ok)
}

func TestGet_ReturnsDefensiveCopyOfEvents(t *testing.T) {
	s := tracestore.New()
	id := s.Create()
	s.Record(id, tracestore.EventRequest, map[string]any{"k": "v"})

	tr, ok := s.Get(id)
	require.True(t, ok)
	tr.Events[0].Type = tracestore.EventFailure // mutate the copy

	tr2, ok := s.Get(id)
	require.True(t, ok)
	assert.Equal(t, tracestore.EventRequest, tr2.Events[0].Type)
}
