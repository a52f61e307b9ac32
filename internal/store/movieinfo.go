package store

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	"github.com/dannyrandall/moviecatalog/internal/movies"
)

// MovieInfoStore keeps movie infos in a table keyed by "movieInfoId".
type MovieInfoStore struct {
	table table[movies.MovieInfo]
}

func NewMovieInfoStore(api DynamoDBAPI, tableName string) *MovieInfoStore {
	return &MovieInfoStore{table: table[movies.MovieInfo]{api: api, name: tableName, key: "movieInfoId"}}
}

// Save writes info, assigning a new id when it has none.
func (s *MovieInfoStore) Save(ctx context.Context, info movies.MovieInfo) (movies.MovieInfo, error) {
	if info.ID == "" {
		info.ID = movies.NewID()
	}
	if info.Cast == nil {
		info.Cast = []string{}
	}
	if err := s.table.put(ctx, info); err != nil {
		return movies.MovieInfo{}, err
	}
	return info, nil
}

func (s *MovieInfoStore) FindByID(ctx context.Context, id string) (movies.MovieInfo, error) {
	return s.table.get(ctx, id)
}

func (s *MovieInfoStore) FindAll(ctx context.Context) ([]movies.MovieInfo, error) {
	return s.table.scan(ctx, &dynamodb.ScanInput{})
}

func (s *MovieInfoStore) FindByYear(ctx context.Context, year int) ([]movies.MovieInfo, error) {
	expr, err := expression.NewBuilder().
		WithFilter(expression.Name("year").Equal(expression.Value(year))).
		Build()
	if err != nil {
		return nil, fmt.Errorf("build year filter: %w", err)
	}

	return s.table.scan(ctx, &dynamodb.ScanInput{
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	})
}

func (s *MovieInfoStore) Delete(ctx context.Context, id string) error {
	return s.table.delete(ctx, id)
}
