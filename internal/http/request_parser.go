package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"fintrack/internal/core"
)

// maxBodyBytes bounds every request body.
const maxBodyBytes = 1 << 20

var errMalformedRequest = errors.New("malformed request")

// decodeJSON reads exactly one JSON object from the body into dst.
// Anything that is not valid JSON is errMalformedRequest; unknown fields are
// rejected too so typos do not silently drop data.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return fmt.Errorf("request body is empty: %w", errMalformedRequest)
		case errors.As(err, &maxErr):
			return fmt.Errorf("request body exceeds %d bytes: %w", maxErr.Limit, errMalformedRequest)
		default:
			return fmt.Errorf("invalid JSON body: %v: %w", err, errMalformedRequest)
		}
	}
	if dec.More() {
		return fmt.Errorf("request body holds more than one JSON value: %w", errMalformedRequest)
	}
	return nil
}

// queryValue returns the trimmed, control-character free query parameter.
func queryValue(q url.Values, key string) string {
	return sanitizeInput(q.Get(key))
}

// queryDate reads an optional YYYY-MM-DD parameter.
func queryDate(q url.Values, key string) (core.Date, error) {
	v := queryValue(q, key)
	if v == "" {
		return "", nil
	}
	d := core.Date(v)
	if err := d.Validate(); err != nil {
		return "", fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

// queryTxType reads an optional transaction type parameter.
func queryTxType(q url.Values, key string) (core.TxType, error) {
	v := core.TxType(strings.ToLower(queryValue(q, key)))
	if v != "" && !v.Valid() {
		return "", fmt.Errorf("%s: unknown transaction type %q: %w", key, v, core.ErrInvalid)
	}
	return v, nil
}

// ParseFilter builds a transaction filter from list query parameters.
func ParseFilter(q url.Values) (core.Filter, error) {
	var (
		f   core.Filter
		err error
	)
	if f.Type, err = queryTxType(q, "type"); err != nil {
		return core.Filter{}, err
	}
	if f.Date, err = queryDate(q, "date"); err != nil {
		return core.Filter{}, err
	}
	if f.From, err = queryDate(q, "from"); err != nil {
		return core.Filter{}, err
	}
	if f.To, err = queryDate(q, "to"); err != nil {
		return core.Filter{}, err
	}
	if f.From != "" && f.To != "" && f.To < f.From {
		return core.Filter{}, fmt.Errorf("range ends %s before it starts %s: %w", f.To, f.From, core.ErrInvalid)
	}
	f.Category = queryValue(q, "category")
	f.Account = queryValue(q, "account")
	return f, nil
}

// DateRange is an optional [from, to] pair read from the query string.
type DateRange struct {
	From core.Date
	To   core.Date
}

// ParseDateRange reads the two named bounds. Either may be missing.
func ParseDateRange(q url.Values, fromKey, toKey string) (DateRange, error) {
	from, err := queryDate(q, fromKey)
	if err != nil {
		return DateRange{}, err
	}
	to, err := queryDate(q, toKey)
	if err != nil {
		return DateRange{}, err
	}
	return DateRange{From: from, To: to}, nil
}
