package remote

import "fmt"

// Error carries a non-2xx remote response. Callers get the status code and the
// raw body and must not parse further; the remote API's error shapes are not
// part of any contract this service relies on.
type Error struct {
	Status int
	Body   string
}

func (e *Error) Error() string {
	return fmt.Sprintf("remote API returned %d: %s", e.Status, e.Body)
}
