package veteran

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/jerif/verification-api/internal/domain"
	"github.com/jerif/verification-api/internal/infrastructure/veterans"
)

type mockLister struct{ mock.Mock }

func (m *mockLister) List(ctx context.Context, limit int) ([]domain.Veteran, error) {
	args := m.Called(ctx, limit)
	v, _ := args.Get(0).([]domain.Veteran)
	return v, args.Error(1)
}

var records = []domain.Veteran{
	{ID: "1", FirstName: "John", LastName: "Smith", BranchOfService: "Army", Status: "Retired", DateOfBirth: "1975-03-15", DischargeDate: "2015-06-01"},
}

func TestCandidates_DisplayName(t *testing.T) {
	l := new(mockLister)
	l.On("List", mock.Anything, 50).Return(records, nil)

	out, err := NewService(l, 50, 0).Candidates(context.Background())
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "John Smith (Army)", out[0].DisplayName)
	assert.Equal(t, "1975-03-15", out[0].DateOfBirth)
}

func TestCandidates_KeepsUpstreamIDType(t *testing.T) {
	l := new(mockLister)
	l.On("List", mock.Anything, 10).Return([]domain.Veteran{
		{ID: "42", RawID: json.RawMessage(`42`), FirstName: "Jane", LastName: "Doe", BranchOfService: "Navy"},
		{ID: "abc", RawID: json.RawMessage(`"abc"`), FirstName: "Sam", LastName: "Lee", BranchOfService: "Army"},
		{ID: "7", FirstName: "Kim", LastName: "Park", BranchOfService: "Marines"},
	}, nil)

	out, err := NewService(l, 10, 0).Candidates(context.Background())
	require.NoError(t, err)

	b, err := json.Marshal(out)
	require.NoError(t, err)
	var decoded []map[string]any
	require.NoError(t, json.Unmarshal(b, &decoded))
	require.Len(t, decoded, 3)
	assert.Equal(t, float64(42), decoded[0]["id"])
	assert.Equal(t, "abc", decoded[1]["id"])
	assert.Equal(t, "7", decoded[2]["id"])
	assert.Equal(t, "Jane Doe (Navy)", decoded[0]["display_name"])
	assert.NotContains(t, decoded[0], "RawID")
}

func TestCandidates_Cached(t *testing.T) {
	l := new(mockLister)
	l.On("List", mock.Anything, 10).Return(records, nil).Once()

	svc := NewService(l, 10, time.Minute)
	for i := 0; i < 3; i++ {
		out, err := svc.Candidates(context.Background())
		require.NoError(t, err)
		assert.Len(t, out, 1)
	}
	l.AssertNumberOfCalls(t, "List", 1)
}

func TestCandidates_ErrorsNotCached(t *testing.T) {
	l := new(mockLister)
	upstream := &veterans.StatusError{StatusCode: 502, Status: "502 Bad Gateway"}
	l.On("List", mock.Anything, 10).Return(nil, upstream).Once()
	l.On("List", mock.Anything, 10).Return(records, nil).Once()

	svc := NewService(l, 10, time.Minute)
	_, err := svc.Candidates(context.Background())
	var se *veterans.StatusError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, 502, se.StatusCode)

	out, err := svc.Candidates(context.Background())
	require.NoError(t, err)
	assert.Len(t, out, 1)
}
