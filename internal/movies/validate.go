package movies

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// violationMessages maps "Field.tag" to the message reported to API callers.
var violationMessages = map[string]string{
	"Name.required":        "Name must be present",
	"Year.gt":              "Year must be a positive value",
	"Cast.required":        "Cast must be present",
	"ReleaseDate.datetime": "Release date must be formatted as YYYY-MM-DD",
	"MovieInfoID.required": "rating.movieInfoId : must not be null",
	"Rating.gte":           "rating.negative : please pass a non-negative value",
}

// ValidateMovieInfo checks the constraints of a MovieInfo request body.
func ValidateMovieInfo(info MovieInfo) error {
	return check(info)
}

// ValidateReview checks the constraints of a Review request body.
func ValidateReview(review Review) error {
	return check(review)
}

func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return fmt.Errorf("validate: %w", err)
	}

	seen := make(map[string]bool)
	var msgs []string
	for _, fe := range fieldErrs {
		field, _, _ := strings.Cut(fe.StructField(), "[")
		msg, ok := violationMessages[field+"."+fe.Tag()]
		if !ok {
			msg = fmt.Sprintf("%s failed on %s", field, fe.Tag())
		}
		if seen[msg] {
			continue
		}
		seen[msg] = true
		msgs = append(msgs, msg)
	}

	sort.Strings(msgs)
	return &ValidationError{Messages: msgs}
}
