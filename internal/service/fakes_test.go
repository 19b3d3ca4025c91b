package service

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/digkill/BizPlanGen/internal/llm"
	"github.com/digkill/BizPlanGen/internal/razorpay"
	"github.com/digkill/BizPlanGen/internal/storage"
)

type fakeProvider struct {
	mu       sync.Mutex
	requests []razorpay.OrderRequest
	orderID  string
	err      error
	secret   string
}

func (f *fakeProvider) KeyID() string { return "rzp_test_key" }

func (f *fakeProvider) CreateOrder(ctx context.Context, req razorpay.OrderRequest) (*razorpay.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	id := f.orderID
	if id == "" {
		id = "order_test"
	}
	return &razorpay.Order{ID: id, Amount: req.Amount, Currency: req.Currency, Status: "created"}, nil
}

func (f *fakeProvider) VerifyPaymentSignature(orderID, paymentID, signature string) bool {
	return razorpay.Sign([]byte(orderID+"|"+paymentID), f.secret) == signature
}

type fakeCompleter struct {
	mu    sync.Mutex
	calls []llm.CompletionRequest
	text  string
	err   error
	block chan struct{}
}

func (f *fakeCompleter) Model() string { return "gpt-4" }

func (f *fakeCompleter) Complete(ctx context.Context, req llm.CompletionRequest) (string, error) {
	f.mu.Lock()
	f.calls = append(f.calls, req)
	text, err, block := f.text, f.err, f.block
	f.mu.Unlock()

	if block != nil {
		select {
		case <-block:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return text, err
}

func (f *fakeCompleter) set(text string, err error) {
	f.mu.Lock()
	f.text, f.err = text, err
	f.mu.Unlock()
}

func (f *fakeCompleter) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type fakeGenerationLog struct {
	mu       sync.Mutex
	outcomes []string
}

func (f *fakeGenerationLog) Log(ctx context.Context, sessionID, jobID, model, outcome, errorKind string) error {
	f.mu.Lock()
	f.outcomes = append(f.outcomes, outcome)
	f.mu.Unlock()
	return nil
}

type recordingNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *recordingNotifier) Notify(ctx context.Context, text string) error {
	n.mu.Lock()
	n.messages = append(n.messages, text)
	n.mu.Unlock()
	return nil
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

type failingStore struct{}

func (failingStore) Save(context.Context, string, string) (string, error) {
	return "", errors.New("disk full")
}

func (failingStore) Open(context.Context, string) (io.ReadCloser, error) {
	return nil, storage.ErrNotFound
}

func newLocalStore(t *testing.T) (*storage.LocalStore, string) {
	t.Helper()
	dir := t.TempDir()
	store, err := storage.NewLocalStore(dir)
	require.NoError(t, err)
	return store, dir
}
