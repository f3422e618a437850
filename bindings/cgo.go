// Package main exports a C ABI for embedding MemDB from other languages.
// Build with: go build -buildmode=c-shared -o libmemdb.so ./bindings
package main

/*
#include <stdlib.h>
*/
import "C"
import (
	"sync"
	"unsafe"

	"github.com/goccy/go-json"
	"github.com/nickyhof/MemDB"
	"github.com/nickyhof/MemDB/core"
	"github.com/nickyhof/MemDB/db"
	"github.com/nickyhof/MemDB/ps"
)

// Handle is one open database instance.
type Handle struct {
	instance *MemDB.Instance
	engine   *db.Engine
}

var (
	mu         sync.Mutex
	handles    = make(map[int]*Handle)
	nextHandle = 1
)

var bindingIdentity = core.Identity{Name: "MemDB Bindings", Email: "bindings@memdb.local"}

// Response mirrors the server protocol.
type Response struct {
	Success bool            `json:"success"`
	Error   string          `json:"error,omitempty"`
	Type    string          `json:"type,omitempty"`
	Result  json.RawMessage `json:"result,omitempty"`
}

type QueryResponse struct {
	Columns     []string   `json:"columns"`
	Data        [][]string `json:"data"`
	RecordsRead int        `json:"records_read"`
	TimeMs      float64    `json:"time_ms"`
}

type MutationResponse struct {
	Value    any     `json:"value,omitempty"`
	InsertID any     `json:"insert_id,omitempty"`
	NumRows  int     `json:"num_rows"`
	TimeMs   float64 `json:"time_ms"`
}

func register(persistence *ps.Persistence) C.int {
	instance := MemDB.Open(persistence)
	engine := instance.Engine(bindingIdentity)

	mu.Lock()
	defer mu.Unlock()
	handle := nextHandle
	nextHandle++
	handles[handle] = &Handle{instance: instance, engine: engine}
	return C.int(handle)
}

//export memdb_open_memory
func memdb_open_memory() C.int {
	return register(nil)
}

//export memdb_open_file
func memdb_open_file(path *C.char) C.int {
	persistence, err := ps.NewFilePersistence(C.GoString(path), nil)
	if err != nil {
		return -1
	}
	return register(persistence)
}

//export memdb_close
func memdb_close(handle C.int) {
	mu.Lock()
	defer mu.Unlock()
	delete(handles, int(handle))
}

//export memdb_execute
func memdb_execute(handle C.int, query *C.char) *C.char {
	mu.Lock()
	h, ok := handles[int(handle)]
	mu.Unlock()
	if !ok {
		return makeErrorResponse("invalid handle")
	}

	result, err := h.engine.Execute(C.GoString(query))
	if err != nil {
		return makeErrorResponse(err.Error())
	}

	var resp Response
	switch r := result.(type) {
	case db.QueryResult:
		data, _ := json.Marshal(QueryResponse{
			Columns:     r.Columns,
			Data:        r.Data(),
			RecordsRead: r.RecordsRead,
			TimeMs:      r.ExecutionTimeSec * 1000,
		})
		resp = Response{Success: true, Type: "query", Result: data}
	case db.MutationResult:
		data, _ := json.Marshal(MutationResponse{
			Value:    r.Value,
			InsertID: r.InsertID,
			NumRows:  r.NumRows,
			TimeMs:   r.ExecutionTimeSec * 1000,
		})
		resp = Response{Success: true, Type: "mutation", Result: data}
	default:
		resp = Response{Success: true, Type: "unknown"}
	}

	jsonData, _ := json.Marshal(resp)
	return C.CString(string(jsonData))
}

//export memdb_checkpoint
func memdb_checkpoint(handle C.int, message *C.char) *C.char {
	mu.Lock()
	h, ok := handles[int(handle)]
	mu.Unlock()
	if !ok {
		return makeErrorResponse("invalid handle")
	}

	txn, err := h.engine.Checkpoint(C.GoString(message))
	if err != nil {
		return makeErrorResponse(err.Error())
	}
	data, _ := json.Marshal(map[string]string{"id": txn.Id, "author": txn.Author})
	jsonData, _ := json.Marshal(Response{Success: true, Type: "checkpoint", Result: data})
	return C.CString(string(jsonData))
}

//export memdb_free
func memdb_free(ptr *C.char) {
	C.free(unsafe.Pointer(ptr))
}

func makeErrorResponse(msg string) *C.char {
	jsonData, _ := json.Marshal(Response{Success: false, Error: msg})
	return C.CString(string(jsonData))
}

func main() {}
