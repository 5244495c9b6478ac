package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
)

// maxBodyBytes bounds JSON request bodies.
const maxBodyBytes = 1 << 20

// flexInt accepts a JSON number, a numeric string, "" or null. Browser
// forms often send IDs as strings.
type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(b)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return unprocessable("%s is not an integer", string(b))
	}
	*f = flexInt(n)
	return nil
}

// flexFloat is flexInt for decimal numbers.
type flexFloat float64

func (f *flexFloat) UnmarshalJSON(b []byte) error {
	s := strings.Trim(string(bytes.TrimSpace(b)), `"`)
	if s == "" || s == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return unprocessable("%s is not a number", string(b))
	}
	*f = flexFloat(v)
	return nil
}

// flexBool accepts true/false, 0/1 and their string forms.
type flexBool bool

func (f *flexBool) UnmarshalJSON(b []byte) error {
	switch strings.Trim(string(bytes.TrimSpace(b)), `"`) {
	case "true", "1":
		*f = true
	case "false", "0", "", "null":
		*f = false
	default:
		return unprocessable("%s is not a boolean", string(b))
	}
	return nil
}

// decodeBody reads a JSON request body into v. An empty body leaves v
// untouched.
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		var he *httpError
		if errors.As(err, &he) {
			return he
		}
		return unprocessable("invalid JSON body: %v", err)
	}
	return nil
}

// requireID rejects a missing or non-positive ID.
func requireID(name string, id flexInt) (int64, error) {
	if id <= 0 {
		return 0, unprocessable("%s is required", name)
	}
	return int64(id), nil
}

// queryID reads a positive integer query parameter.
func queryID(r *http.Request, name string) (int64, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(name))
	if raw == "" {
		return 0, unprocessable("%s is required", name)
	}
	n, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || n <= 0 {
		return 0, unprocessable("%s must be a positive integer", name)
	}
	return n, nil
}
