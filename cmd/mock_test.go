package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/hdb-resale/resale-cli/internal/model"
	"github.com/hdb-resale/resale-cli/internal/sink"
	"github.com/hdb-resale/resale-cli/internal/store"
)

// --- Store Mock ---

// mockStore implements the store methods the commands call directly; the
// embedded interface panics on anything else.
type mockStore struct {
	store.Store
	mock.Mock
}

func (m *mockStore) SaveMatches(ctx context.Context, runID string, results []model.MatchResult) error {
	return m.Called(ctx, runID, results).Error(0)
}

func (m *mockStore) UpdateRunProgress(ctx context.Context, runID string, processed int) error {
	return m.Called(ctx, runID, processed).Error(0)
}

func (m *mockStore) FinishRun(ctx context.Context, runID string, runErr error) error {
	return m.Called(ctx, runID, runErr).Error(0)
}

func TestStoreWriter(t *testing.T) {
	st := &mockStore{}
	results := []model.MatchResult{{House: "H1", Amenity: "A", DistanceKM: 0.3}}
	st.On("SaveMatches", mock.Anything, "run-1", results).Return(nil)
	st.On("UpdateRunProgress", mock.Anything, "run-1", 1000).Return(nil)

	err := storeWriter(st, "run-1")(context.Background(), sink.Snapshot{Done: 1000, Total: 2500, Results: results})
	assert.NoError(t, err)
	st.AssertExpectations(t)
}

func TestStoreWriter_SaveErrorSkipsProgress(t *testing.T) {
	st := &mockStore{}
	boom := errors.New("database is locked")
	st.On("SaveMatches", mock.Anything, "run-1", mock.Anything).Return(boom)

	err := storeWriter(st, "run-1")(context.Background(), sink.Snapshot{Done: 1})
	assert.ErrorIs(t, err, boom)
	st.AssertNotCalled(t, "UpdateRunProgress", mock.Anything, mock.Anything, mock.Anything)
}

func TestFinishRun_LogsStoreFailure(t *testing.T) {
	st := &mockStore{}
	runErr := errors.New("cancelled")
	st.On("FinishRun", mock.Anything, "run-1", runErr).Return(errors.New("disk full"))

	finishRun(st, "run-1", runErr)
	st.AssertExpectations(t)
}
