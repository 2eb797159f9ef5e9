package assets

import (
	"bytes"
	"errors"
)

// ResultType classifies the outcome of an asset fetch.
type ResultType int

const (
	ResultFailed ResultType = iota
	ResultSuccess
	ResultNotFound
)

func (t ResultType) String() string {
	switch t {
	case ResultSuccess:
		return "success"
	case ResultNotFound:
		return "not_found"
	default:
		return "failed"
	}
}

// ErrAssetNotFound is carried by NotFound results.
var ErrAssetNotFound = errors.New("asset not found upstream")

// Result is the outcome of FetchAsset. Data is only set for ResultSuccess; Err
// is nil for ResultSuccess, ErrAssetNotFound for ResultNotFound and the
// underlying cause for ResultFailed.
type Result struct {
	Type ResultType
	Data []byte
	Err  error
}

// Reader returns a reader over the payload; empty unless the fetch succeeded.
func (r Result) Reader() *bytes.Reader { return bytes.NewReader(r.Data) }

// OK reports whether the fetch succeeded.
func (r Result) OK() bool { return r.Type == ResultSuccess }

func success(data []byte) Result { return Result{Type: ResultSuccess, Data: data} }

func notFound() Result { return Result{Type: ResultNotFound, Err: ErrAssetNotFound} }

func failed(err error) Result { return Result{Type: ResultFailed, Err: err} }
