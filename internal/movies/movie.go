package movies

import "github.com/segmentio/ksuid"

// MovieInfo is the metadata of a movie, owned by the movie info service.
type MovieInfo struct {
	ID          string   `json:"movieInfoId,omitempty" dynamodbav:"movieInfoId"`
	Name        string   `json:"name" dynamodbav:"name" validate:"required"`
	Year        int      `json:"year" dynamodbav:"year" validate:"gt=0"`
	Cast        []string `json:"cast" dynamodbav:"cast" validate:"dive,required"`
	ReleaseDate string   `json:"releaseDate,omitempty" dynamodbav:"releaseDate,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// Review is a user review of a movie. MovieInfoID is not checked for existence.
type Review struct {
	ID          string  `json:"reviewId,omitempty" dynamodbav:"reviewId"`
	MovieInfoID string  `json:"movieInfoId" dynamodbav:"movieInfoId" validate:"required"`
	Comment     string  `json:"comment" dynamodbav:"comment"`
	Rating      float64 `json:"rating" dynamodbav:"rating" validate:"gte=0"`
}

// Movie combines one MovieInfo with its reviews for a single response.
type Movie struct {
	MovieInfo  MovieInfo `json:"movieInfo"`
	ReviewList []Review  `json:"reviewList"`
}

// NewMovie builds a Movie. A nil review list is normalized to an empty one.
func NewMovie(info MovieInfo, reviews []Review) Movie {
	if reviews == nil {
		reviews = []Review{}
	}
	return Movie{MovieInfo: info, ReviewList: reviews}
}

func NewID() string {
	return ksuid.New().String()
}
