// Package normalizer reduces an arbitrary JSON response into a model.Table.
//
// Columns are the keys of the first row in the order they appear in the
// response body. Parsing goes through fastjson so object key order survives;
// Go maps are never used to hold a row.
package normalizer

import (
	"fmt"

	"apiquery/internal/model"

	"github.com/valyala/fastjson"
)

// ScalarColumn names the single column used when the first row is not an object.
const ScalarColumn = "value"

type Kind int

const (
	// UnexpectedShape means the body parsed but is neither an object nor an array.
	UnexpectedShape Kind = iota + 1
	// MalformedBody means the body is not valid JSON.
	MalformedBody
)

func (k Kind) String() string {
	switch k {
	case UnexpectedShape:
		return "unexpected shape"
	case MalformedBody:
		return "malformed body"
	default:
		return "unknown"
	}
}

// NormalizationError reports a response that cannot be turned into a table.
type NormalizationError struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *NormalizationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *NormalizationError) Unwrap() error {
	return e.Err
}

// IsUnexpectedShape reports whether err is a NormalizationError of kind UnexpectedShape.
func IsUnexpectedShape(err error) bool {
	ne, ok := err.(*NormalizationError)
	return ok && ne.Kind == UnexpectedShape
}

// NormalizeBytes parses body and normalizes it.
func NormalizeBytes(body []byte) (*model.Table, error) {
	var p fastjson.Parser
	v, err := p.ParseBytes(body)
	if err != nil {
		return nil, &NormalizationError{Kind: MalformedBody, Msg: "response is not valid JSON", Err: err}
	}
	return Normalize(v)
}

// Normalize turns a parsed response into a table. An array is the row set,
// an object is a single row and anything else is rejected. A zero-length
// array yields an empty table, not an error.
func Normalize(v *fastjson.Value) (*model.Table, error) {
	if v == nil {
		return nil, &NormalizationError{Kind: UnexpectedShape, Msg: "response is empty"}
	}

	var items []*fastjson.Value
	switch v.Type() {
	case fastjson.TypeArray:
		items, _ = v.Array()
	case fastjson.TypeObject:
		items = []*fastjson.Value{v}
	default:
		return nil, &NormalizationError{Kind: UnexpectedShape, Msg: fmt.Sprintf("expected an object or array, got %s", v.Type())}
	}

	table := &model.Table{Columns: []string{}, Rows: make([]model.Row, 0, len(items))}
	if len(items) == 0 {
		return table, nil
	}

	table.Columns = columnsOf(items[0])
	for _, item := range items {
		table.Rows = append(table.Rows, rowOf(item))
	}
	return table, nil
}

func columnsOf(v *fastjson.Value) []string {
	if v.Type() != fastjson.TypeObject {
		return []string{ScalarColumn}
	}
	obj, _ := v.Object()
	cols := make([]string, 0, obj.Len())
	obj.Visit(func(key []byte, _ *fastjson.Value) {
		cols = append(cols, string(key))
	})
	return cols
}

// rowOf renders the row's own values in its own key order.
func rowOf(v *fastjson.Value) model.Row {
	if v.Type() != fastjson.TypeObject {
		return model.Row{Display(v)}
	}
	obj, _ := v.Object()
	row := make(model.Row, 0, obj.Len())
	obj.Visit(func(_ []byte, cell *fastjson.Value) {
		row = append(row, Display(cell))
	})
	return row
}

// Display renders a single cell. Objects and arrays become compact JSON,
// strings their text, numbers their JSON literal, null the empty string.
func Display(v *fastjson.Value) string {
	if v == nil {
		return ""
	}
	switch v.Type() {
	case fastjson.TypeNull:
		return ""
	case fastjson.TypeString:
		return string(v.GetStringBytes())
	case fastjson.TypeTrue:
		return "true"
	case fastjson.TypeFalse:
		return "false"
	default:
		// numbers keep their literal text, containers are marshaled compactly
		return string(v.MarshalTo(nil))
	}
}
