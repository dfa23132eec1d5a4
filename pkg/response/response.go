package response

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-playground/validator/v10"
)

const (
	StatusSuccess  = "SUCCESS"
	StatusError    = "ERROR"
	StatusNotFound = "NOT_FOUND"
)

// URLResponse answers a shorten request. Token is null when Status is StatusError.
type URLResponse struct {
	URL    string  `json:"url"`
	Token  *string `json:"token"`
	Status string  `json:"status"`
}

func Shortened(url, token string) URLResponse {
	return URLResponse{
		URL:    url,
		Token:  &token,
		Status: StatusSuccess,
	}
}

func ShortenFailed(url string) URLResponse {
	return URLResponse{
		URL:    url,
		Status: StatusError,
	}
}

// TokenListResponse answers a list request. The field keeps the historical
// "url" name.
type TokenListResponse struct {
	Tokens []string `json:"url"`
	Status string   `json:"status"`
}

func TokenList(tokens []string) TokenListResponse {
	if tokens == nil {
		tokens = []string{}
	}

	return TokenListResponse{
		Tokens: tokens,
		Status: StatusSuccess,
	}
}

func TokenListFailed() TokenListResponse {
	return TokenListResponse{
		Tokens: []string{},
		Status: StatusError,
	}
}

type StatsResponse struct {
	Token  string           `json:"token"`
	Stats  map[string]int64 `json:"stats"`
	Status string           `json:"status"`
}

type Route struct {
	Method string `json:"method"`
	Path   string `json:"path"`
}

var EmptyRequestBodyResponse = ErrorResponse{
	Status:     StatusError,
	StatusCode: http.StatusBadRequest,
	Error:      "Empty Request Body",
	Message:    "Request body is empty. Please provide necessary data.",
}

var BadRequestResponse = ErrorResponse{
	Status:     StatusError,
	StatusCode: http.StatusBadRequest,
	Error:      "Bad Request",
	Message:    "Request body is not valid JSON.",
}

var NotAcceptableResponse = ErrorResponse{
	Status:     StatusError,
	StatusCode: http.StatusNotAcceptable,
	Error:      "Not Acceptable",
	Message:    "Request body must be application/json.",
}

var ResourceNotFoundResponse = ErrorResponse{
	Status:     StatusNotFound,
	StatusCode: http.StatusNotFound,
	Error:      "Resource Not Found",
	Message:    "The requested resource was not found.",
}

var ServerErrorResponse = ErrorResponse{
	Status:     StatusError,
	StatusCode: http.StatusInternalServerError,
	Error:      "Server Error",
	Message:    "An internal server error occurred. Please try again later.",
}

type ErrorResponse struct {
	Status     string            `json:"status"`
	StatusCode int               `json:"status_code"`
	Error      string            `json:"error"`
	Message    string            `json:"message"`
	Details    []validationError `json:"details,omitempty"`
}

type validationError struct {
	Field string `json:"field"`
	Value any    `json:"value"`
	Issue string `json:"issue"`
}

func ValidationErrorResponse(err error) ErrorResponse {
	return ErrorResponse{
		Status:     StatusError,
		StatusCode: http.StatusBadRequest,
		Error:      "Validation Error",
		Message:    "Request body failed validation.",
		Details:    getValidationErrors(err),
	}
}

func getValidationErrors(err error) []validationError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}

	details := make([]validationError, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, validationError{
			Field: fe.Field(),
			Value: fe.Value(),
			Issue: issue(fe),
		})
	}

	return details
}

func issue(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "This field is required."
	case "url":
		return "Invalid url."
	default:
		return fmt.Sprintf("Failed on the %q rule.", fe.Tag())
	}
}
