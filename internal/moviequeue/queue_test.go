package moviequeue

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dannyrandall/moviecatalog/internal/movies"
)

// fakeSQS hands out batches once, then blocks until the context ends.
type fakeSQS struct {
	mu       sync.Mutex
	batches  [][]types.Message
	errs     []error
	deleted  []string
	received chan struct{}
}

func (f *fakeSQS) ReceiveMessage(ctx context.Context, _ *sqs.ReceiveMessageInput, _ ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error) {
	f.mu.Lock()
	if len(f.errs) > 0 {
		err := f.errs[0]
		f.errs = f.errs[1:]
		f.mu.Unlock()
		return nil, err
	}
	if len(f.batches) > 0 {
		batch := f.batches[0]
		f.batches = f.batches[1:]
		f.mu.Unlock()
		return &sqs.ReceiveMessageOutput{Messages: batch}, nil
	}
	f.mu.Unlock()

	close(f.received)
	<-ctx.Done()
	return nil, ctx.Err()
}

func (f *fakeSQS) DeleteMessage(_ context.Context, in *sqs.DeleteMessageInput, _ ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deleted = append(f.deleted, aws.ToString(in.ReceiptHandle))
	return &sqs.DeleteMessageOutput{}, nil
}

func message(id, body string) types.Message {
	return types.Message{MessageId: aws.String(id), ReceiptHandle: aws.String("rh-" + id), Body: aws.String(body)}
}

// infoService accepts movie infos named anything but "reject".
func infoService(t *testing.T) (*httptest.Server, *[]movies.MovieInfo) {
	t.Helper()
	var (
		mu      sync.Mutex
		created []movies.MovieInfo
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var info movies.MovieInfo
		if err := json.NewDecoder(r.Body).Decode(&info); err != nil || info.Name == "reject" {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, "Name must be present")
			return
		}
		info.ID = "id-" + info.Name
		mu.Lock()
		created = append(created, info)
		mu.Unlock()
		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(info)
	}))
	t.Cleanup(srv.Close)
	return srv, &created
}

func run(t *testing.T, q *Queue, fake *fakeSQS) error {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- q.ReceiveAndProcess(ctx) }()

	select {
	case <-fake.received:
	case <-time.After(2 * time.Second):
		t.Fatal("queue never drained")
	}
	cancel()
	return <-done
}

func TestReceiveAndProcess_DeletesOnlyIngestedMessages(t *testing.T) {
	srv, created := infoService(t)
	fake := &fakeSQS{
		received: make(chan struct{}),
		batches: [][]types.Message{{
			message("1", `{"name":"Batman Begins","year":2005,"cast":["Christian Bale"]}`),
			message("2", `{"name":"reject","year":2005}`),
			message("3", `not json`),
			message("4", `{"name":"The Dark Knight","year":2008,"cast":["Heath Ledger"]}`),
		}},
	}
	q := &Queue{SQS: fake, QueueURL: "https://sqs.local/queue", CreateMovieInfoURL: srv.URL + "/v1/movieinfos"}

	err := run(t, q, fake)
	assert.ErrorIs(t, err, context.Canceled)

	assert.Equal(t, []string{"rh-1", "rh-4"}, fake.deleted)
	require.Len(t, *created, 2)
	assert.Equal(t, "Batman Begins", (*created)[0].Name)
}

func TestReceiveAndProcess_KeepsPollingAfterReceiveError(t *testing.T) {
	srv, created := infoService(t)
	fake := &fakeSQS{
		received: make(chan struct{}),
		errs:     []error{errors.New("throttled")},
		batches:  [][]types.Message{{message("1", `{"name":"Batman Begins","year":2005,"cast":["Christian Bale"]}`)}},
	}
	q := &Queue{
		SQS:                fake,
		QueueURL:           "https://sqs.local/queue",
		CreateMovieInfoURL: srv.URL + "/v1/movieinfos",
		ErrorDelay:         time.Millisecond,
	}

	assert.ErrorIs(t, run(t, q, fake), context.Canceled)
	assert.Equal(t, []string{"rh-1"}, fake.deleted)
	assert.Len(t, *created, 1)
}
