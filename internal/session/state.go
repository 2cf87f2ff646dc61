package session

import (
	"encoding/json"
	"errors"

	"apiquery/internal/model"
	"apiquery/internal/normalizer"
	"apiquery/internal/querybuilder"
	"apiquery/internal/transport"
)

type Phase int

const (
	Idle Phase = iota
	Loading
	Success
	Empty
	Error
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Loading:
		return "loading"
	case Success:
		return "success"
	case Empty:
		return "empty"
	case Error:
		return "error"
	default:
		return "unknown"
	}
}

// Terminal reports whether p ends a request.
func (p Phase) Terminal() bool {
	return p == Success || p == Empty || p == Error
}

// State is what the rendering layers display. Table is set only in Success,
// Err only in Error.
type State struct {
	Phase   Phase
	Seq     uint64
	Request model.RequestDescriptor
	Table   *model.Table
	Err     error
}

const (
	MsgMissingPrefix   = "Query string must start with '?'"
	MsgEmptyQuery      = "Enter a query first"
	MsgNoData          = "No data found."
	MsgUnexpectedShape = "Unexpected data format from API"
	MsgRequestFailed   = "API request failed: "
)

// Message is the user-facing text for Empty and Error states.
func (s State) Message() string {
	switch s.Phase {
	case Empty:
		return MsgNoData
	case Error:
		return errorMessage(s.Err)
	default:
		return ""
	}
}

func errorMessage(err error) string {
	if err == nil {
		return MsgRequestFailed + "unknown error"
	}

	var verr *querybuilder.ValidationError
	if errors.As(err, &verr) {
		if errors.Is(err, querybuilder.ErrEmptyQuery) {
			return MsgEmptyQuery
		}
		return MsgMissingPrefix
	}

	if normalizer.IsUnexpectedShape(err) {
		return MsgUnexpectedShape
	}

	return MsgRequestFailed + err.Error()
}

// StatusCode returns the HTTP status carried by an Error state, or 0.
func (s State) StatusCode() int {
	var terr *transport.Error
	if errors.As(s.Err, &terr) {
		return terr.StatusCode
	}
	return 0
}

type stateJSON struct {
	Phase      string       `json:"phase"`
	Seq        uint64       `json:"seq"`
	URL        string       `json:"url,omitempty"`
	Table      *model.Table `json:"table,omitempty"`
	Message    string       `json:"message,omitempty"`
	StatusCode int          `json:"status_code,omitempty"`
}

func (s State) MarshalJSON() ([]byte, error) {
	return json.Marshal(stateJSON{
		Phase:      s.Phase.String(),
		Seq:        s.Seq,
		URL:        s.Request.URL,
		Table:      s.Table,
		Message:    s.Message(),
		StatusCode: s.StatusCode(),
	})
}
