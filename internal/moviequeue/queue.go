// Package moviequeue ingests movie infos published to an SQS queue by
// creating each one through the movie info service.
package moviequeue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	semconv "go.opentelemetry.io/otel/semconv/v1.4.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/dannyrandall/moviecatalog/internal/logger"
	"github.com/dannyrandall/moviecatalog/internal/movies"
)

// SQSAPI is the part of *sqs.Client the queue uses.
type SQSAPI interface {
	ReceiveMessage(ctx context.Context, params *sqs.ReceiveMessageInput, optFns ...func(*sqs.Options)) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, params *sqs.DeleteMessageInput, optFns ...func(*sqs.Options)) (*sqs.DeleteMessageOutput, error)
}

type Queue struct {
	SQS       SQSAPI
	QueueName string
	QueueURL  string
	// CreateMovieInfoURL is the movie info service's POST /v1/movieinfos endpoint.
	CreateMovieInfoURL string
	// ErrorDelay is the pause after a failed receive.
	ErrorDelay time.Duration

	HTTP   *http.Client
	Tracer trace.Tracer
	Logger *zap.Logger
}

func (q *Queue) defaults() {
	if q.HTTP == nil {
		q.HTTP = otelhttp.DefaultClient
	}
	if q.Tracer == nil {
		q.Tracer = otel.Tracer("moviequeue")
	}
	if q.Logger == nil {
		q.Logger = zap.NewNop()
	}
	if q.ErrorDelay <= 0 {
		q.ErrorDelay = time.Second
	}
}

// ReceiveAndProcess long-polls the queue until ctx is done. A message is
// deleted only after its movie info was created; failed messages stay on the
// queue and become visible again.
func (q *Queue) ReceiveAndProcess(ctx context.Context) error {
	q.defaults()

	for {
		if err := q.recvAndProcess(ctx); err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			q.Logger.Error("receive and process", zap.Error(err))

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(q.ErrorDelay):
			}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
}

func (q *Queue) recvAndProcess(ctx context.Context) error {
	ctx, span := q.Tracer.Start(ctx, "recvAndProcess",
		trace.WithSpanKind(trace.SpanKindServer),
		trace.WithAttributes(semconv.MessagingSystemKey.String("AmazonSQS")),
		trace.WithAttributes(semconv.MessagingDestinationKey.String(q.QueueName)),
		trace.WithAttributes(semconv.MessagingDestinationKindQueue))
	defer span.End()

	msgs, err := q.receiveMessages(ctx)
	if err != nil {
		return spanErrorf(span, "receive messages: %w", err)
	}

	for _, msg := range msgs {
		if err := q.processMessage(ctx, msg); err != nil {
			logger.WithTrace(ctx, q.Logger).Error("unable to process message",
				zap.String("messageId", aws.ToString(msg.MessageId)), zap.Error(err))
		}
	}
	return nil
}

func (q *Queue) receiveMessages(ctx context.Context) ([]types.Message, error) {
	res, err := q.SQS.ReceiveMessage(ctx, &sqs.ReceiveMessageInput{
		QueueUrl:            aws.String(q.QueueURL),
		MaxNumberOfMessages: 10,
		WaitTimeSeconds:     20,
	})
	if err != nil {
		return nil, err
	}
	return res.Messages, nil
}

func (q *Queue) processMessage(ctx context.Context, msg types.Message) error {
	ctx, span := q.Tracer.Start(ctx, "processMessage",
		trace.WithAttributes(semconv.MessagingMessageIDKey.String(aws.ToString(msg.MessageId))))
	defer span.End()

	var info movies.MovieInfo
	if err := json.Unmarshal([]byte(aws.ToString(msg.Body)), &info); err != nil {
		return spanErrorf(span, "unmarshal movie info: %w", err)
	}

	created, err := q.createMovieInfo(ctx, info)
	if err != nil {
		return spanErrorf(span, "create movie info: %w", err)
	}

	if err := q.deleteMessage(ctx, msg.ReceiptHandle); err != nil {
		return spanErrorf(span, "delete message: %w", err)
	}

	logger.WithTrace(ctx, q.Logger).Info("ingested movie info",
		zap.String("messageId", aws.ToString(msg.MessageId)), zap.String("movieInfoId", created.ID))
	return nil
}

func (q *Queue) createMovieInfo(ctx context.Context, info movies.MovieInfo) (movies.MovieInfo, error) {
	data, err := json.Marshal(info)
	if err != nil {
		return movies.MovieInfo{}, fmt.Errorf("encode movie info: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, q.CreateMovieInfoURL, bytes.NewReader(data))
	if err != nil {
		return movies.MovieInfo{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := q.HTTP.Do(req)
	if err != nil {
		return movies.MovieInfo{}, fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode/100 != 2 {
		return movies.MovieInfo{}, fmt.Errorf("bad response: status code %d: %s", resp.StatusCode, body)
	}

	var created movies.MovieInfo
	if err := json.Unmarshal(body, &created); err != nil {
		return movies.MovieInfo{}, fmt.Errorf("decode created movie info: %w", err)
	}
	return created, nil
}

func (q *Queue) deleteMessage(ctx context.Context, receiptHandle *string) error {
	if receiptHandle == nil {
		return errors.New("message has no receipt handle")
	}
	_, err := q.SQS.DeleteMessage(ctx, &sqs.DeleteMessageInput{
		QueueUrl:      aws.String(q.QueueURL),
		ReceiptHandle: receiptHandle,
	})
	return err
}

func spanErrorf(span trace.Span, format string, a ...any) error {
	err := fmt.Errorf(format, a...)
	span.SetStatus(codes.Error, err.Error())
	return err
}
