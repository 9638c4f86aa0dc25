package bangumi

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/pkg/errors"
)

var (
	ErrInvalidID    = errors.New("id must be positive")
	ErrEmptyKeyword = errors.New("keyword must not be blank")
)

const mustCollectFirstDescription = "you need to add subject to your collection first"

type StatusError struct {
	StatusCode  int    `json:"-"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

func (e *StatusError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("bangumi api error (code %d): %s", e.StatusCode, e.Description)
	}
	return fmt.Sprintf("unexpected status code: %d", e.StatusCode)
}

func readStatusError(resp *http.Response) *StatusError {
	se := &StatusError{StatusCode: resp.StatusCode}
	b, err := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	if err != nil || len(b) == 0 {
		return se
	}
	_ = json.Unmarshal(b, se)
	return se
}

func isMustCollectFirst(err error) bool {
	var se *StatusError
	if !errors.As(err, &se) {
		return false
	}
	if se.StatusCode < 400 || se.StatusCode >= 500 {
		return false
	}
	return strings.Contains(strings.ToLower(se.Description), mustCollectFirstDescription)
}
