package openai

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockClient implements Client for testing.
type MockClient struct {
	mock.Mock
}

func (m *MockClient) CreateChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ChatResponse), args.Error(1)
}

func (m *MockClient) UploadBatchFile(ctx context.Context, path string) (string, error) {
	args := m.Called(ctx, path)
	return args.String(0), args.Error(1)
}

func (m *MockClient) CreateBatch(ctx context.Context, req BatchRequest) (*Batch, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Batch), args.Error(1)
}

func (m *MockClient) GetBatch(ctx context.Context, batchID string) (*Batch, error) {
	args := m.Called(ctx, batchID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Batch), args.Error(1)
}

func (m *MockClient) DownloadFile(ctx context.Context, fileID string, w io.Writer) error {
	args := m.Called(ctx, fileID, w)
	return args.Error(0)
}

func (m *MockClient) Transcribe(ctx context.Context, path, model string) (string, error) {
	args := m.Called(ctx, path, model)
	return args.String(0), args.Error(1)
}

// sequenceClient returns the statuses in order, repeating the last one.
type sequenceClient struct {
	MockClient
	statuses []string
	calls    atomic.Int32
}

func (s *sequenceClient) GetBatch(_ context.Context, id string) (*Batch, error) {
	n := int(s.calls.Add(1)) - 1
	if n >= len(s.statuses) {
		n = len(s.statuses) - 1
	}
	return &Batch{ID: id, Status: s.statuses[n], OutputFileID: "file-out"}, nil
}

func TestPollBatch_CompletesImmediately(t *testing.T) {
	mc := new(MockClient)
	mc.On("GetBatch", mock.Anything, "batch_1").Return(&Batch{ID: "batch_1", Status: StatusCompleted}, nil)

	b, err := PollBatch(context.Background(), mc, "batch_1", WithPollInterval(time.Millisecond))
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, b.Status)
	mc.AssertExpectations(t)
}

func TestPollBatch_CompletesAfterPolls(t *testing.T) {
	sc := &sequenceClient{statuses: []string{StatusValidating, StatusInProgress, StatusFinalizing, StatusCompleted}}

	var seen []string
	b, err := PollBatch(context.Background(), sc, "batch_1",
		WithPollInterval(time.Millisecond),
		WithStatusHook(func(b *Batch) { seen = append(seen, b.Status) }),
	)
	require.NoError(t, err)
	assert.Equal(t, "file-out", b.OutputFileID)
	assert.Equal(t, sc.statuses, seen)
}

func TestPollBatch_TerminalFailures(t *testing.T) {
	for _, status := range []string{StatusFailed, StatusExpired, StatusCancelled} {
		t.Run(status, func(t *testing.T) {
			sc := &sequenceClient{statuses: []string{StatusInProgress, status}}
			b, err := PollBatch(context.Background(), sc, "batch_1", WithPollInterval(time.Millisecond))
			require.ErrorIs(t, err, ErrBatchFailed)
			assert.Contains(t, err.Error(), status)
			require.NotNil(t, b)
			assert.Equal(t, status, b.Status)
		})
	}
}

func TestPollBatch_Timeout(t *testing.T) {
	sc := &sequenceClient{statuses: []string{StatusInProgress}}
	_, err := PollBatch(context.Background(), sc, "batch_1",
		WithPollInterval(5*time.Millisecond),
		WithPollTimeout(20*time.Millisecond),
	)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestPollBatch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	sc := &sequenceClient{statuses: []string{StatusInProgress}}

	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := PollBatch(ctx, sc, "batch_1", WithPollInterval(time.Millisecond))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPollBatch_APIError(t *testing.T) {
	mc := new(MockClient)
	mc.On("GetBatch", mock.Anything, "batch_1").Return(nil, assert.AnError)

	_, err := PollBatch(context.Background(), mc, "batch_1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openai: poll batch batch_1")
}
