package resolve

import "encoding/json"

type Status string

const (
	StatusOK            Status = "ok"
	StatusError         Status = "error"
	StatusNotApplicable Status = "not_applicable"
)

// Result is the outcome of one facet. A failed facet carries its error; it never aborts siblings.
type Result[T any] struct {
	Status  Status
	Value   T
	Err     error
	Message string
}

func OK[T any](v T) Result[T] { return Result[T]{Status: StatusOK, Value: v} }

func Failed[T any](err error, msg string) Result[T] {
	return Result[T]{Status: StatusError, Err: err, Message: msg}
}

// NotApplicable marks a facet that does not exist for the jurisdiction. v is the empty value
// callers should render (an empty senator list, for instance).
func NotApplicable[T any](v T, msg string) Result[T] {
	return Result[T]{Status: StatusNotApplicable, Value: v, Message: msg}
}

func (r Result[T]) OK() bool { return r.Status == StatusOK }

func (r Result[T]) MarshalJSON() ([]byte, error) {
	out := struct {
		Status  Status `json:"status"`
		Value   any    `json:"value,omitempty"`
		Error   string `json:"error,omitempty"`
		Message string `json:"message,omitempty"`
	}{Status: r.Status}
	switch r.Status {
	case StatusError:
		out.Error = r.Message
	case StatusNotApplicable:
		out.Value = r.Value
		out.Message = r.Message
	default:
		out.Value = r.Value
	}
	return json.Marshal(out)
}
