package store

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/dannyrandall/moviecatalog/internal/movies"
)

// ReviewStore keeps reviews in a table keyed by "reviewId", with a global
// secondary index on "movieInfoId".
type ReviewStore struct {
	table      table[movies.Review]
	movieIndex string
}

func NewReviewStore(api DynamoDBAPI, tableName, movieIndex string) *ReviewStore {
	return &ReviewStore{
		table:      table[movies.Review]{api: api, name: tableName, key: "reviewId"},
		movieIndex: movieIndex,
	}
}

// Save writes review, assigning a new id when it has none.
func (s *ReviewStore) Save(ctx context.Context, review movies.Review) (movies.Review, error) {
	if review.ID == "" {
		review.ID = movies.NewID()
	}
	if err := s.table.put(ctx, review); err != nil {
		return movies.Review{}, err
	}
	return review, nil
}

func (s *ReviewStore) FindByID(ctx context.Context, id string) (movies.Review, error) {
	return s.table.get(ctx, id)
}

func (s *ReviewStore) FindAll(ctx context.Context) ([]movies.Review, error) {
	return s.table.scan(ctx, &dynamodb.ScanInput{})
}

func (s *ReviewStore) FindByMovieInfoID(ctx context.Context, movieInfoID string) ([]movies.Review, error) {
	expr, err := expression.NewBuilder().
		WithKeyCondition(expression.Key("movieInfoId").Equal(expression.Value(movieInfoID))).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build movie info key condition: %w", err)
	}

	return s.table.query(ctx, &dynamodb.QueryInput{
		IndexName:                 aws.String(s.movieIndex),
		KeyConditionExpression:    expr.KeyCondition(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
}

func (s *ReviewStore) Delete(ctx context.Context, id string) error {
	return s.table.delete(ctx, id)
}
