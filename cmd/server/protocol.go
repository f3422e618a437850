// Package main provides a TCP SQL server for MemDB.
package main

import (
	"github.com/goccy/go-json"
)

// Request is one statement sent by a client. Args bind the ? placeholders
// in order. A non-empty Checkpoint commits the catalog instead of running
// Query.
type Request struct {
	Query      string `json:"query"`
	Args       []any  `json:"args,omitempty"`
	Checkpoint string `json:"checkpoint,omitempty"`
}

// Response represents the server's response to a request.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Type    string          `json:"type,omitempty"` // "query", "mutation", "checkpoint" or "auth"
	Result  json.RawMessage `json:"result,omitempty"`
}

// QueryResponse contains tabular query results.
type QueryResponse struct {
	Columns     []string   `json:"columns"`
	Data        [][]string `json:"data"`
	RecordsRead int        `json:"records_read"`
	TimeMs      float64    `json:"time_ms"`
}

// MutationResponse contains the outcome of a data or schema change.
type MutationResponse struct {
	Value    any     `json:"value,omitempty"`
	InsertID any     `json:"insert_id,omitempty"`
	NumRows  int     `json:"num_rows"`
	TimeMs   float64 `json:"time_ms"`
}

// CheckpointResponse identifies a saved checkpoint.
type CheckpointResponse struct {
	ID      string `json:"id"`
	Author  string `json:"author"`
	Message string `json:"message"`
}

// AuthResponse confirms a successful AUTH command.
type AuthResponse struct {
	Authenticated bool   `json:"authenticated"`
	Identity      string `json:"identity"`
	Session       string `json:"session"`
	ExpiresIn     int    `json:"expires_in,omitempty"`
}

// EncodeResponse serializes a Response to JSON with a newline.
func EncodeResponse(resp Response) ([]byte, error) {
	data, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// DecodeRequest parses a request line. Lines that are not JSON objects are
// taken as a bare SQL statement.
func DecodeRequest(data []byte) (Request, error) {
	if len(data) == 0 || data[0] != '{' {
		return Request{Query: string(data)}, nil
	}
	var req Request
	err := json.Unmarshal(data, &req)
	return req, err
}

func errorResponse(kind string, err error) Response {
	return Response{Success: false, Type: kind, Error: err.Error()}
}

func resultResponse(kind string, result any) Response {
	data, err := json.Marshal(result)
	if err != nil {
		return errorResponse(kind, err)
	}
	return Response{Success: true, Type: kind, Result: data}
}
