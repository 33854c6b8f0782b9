package batch

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds how many items ProcessBatch works on at once.
const DefaultConcurrency = 4

// Result status values.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// Result represents the result of a single operation in a batch
type Result struct {
	ID     string          `json:"id"`
	Status string          `json:"status"`
	Result json.RawMessage `json:"result,omitempty"`
	Error  string          `json:"error,omitempty"`
}

// BatchResult represents the aggregated results of a batch operation
type BatchResult struct {
	Total      int      `json:"total"`
	Successful int      `json:"successful"`
	Failed     int      `json:"failed"`
	Results    []Result `json:"results"`
}

// ParseStringOrArray parses a parameter that can be either a single string or an array of strings
func ParseStringOrArray(param interface{}, paramName string) ([]string, error) {
	if param == nil {
		return nil, fmt.Errorf("%s is required", paramName)
	}

	var result []string

	switch v := param.(type) {
	case string:
		if v == "" {
			return nil, fmt.Errorf("%s cannot be empty", paramName)
		}
		// Some clients send arrays as a JSON-encoded string.
		if strings.HasPrefix(v, "[") {
			var ids []string
			if err := json.Unmarshal([]byte(v), &ids); err == nil {
				return ParseStringOrArray(ids, paramName)
			}
		}
		result = []string{v}
	case []interface{}:
		if len(v) == 0 {
			return nil, fmt.Errorf("%s cannot be empty", paramName)
		}
		for i, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("%s[%d] must be a string", paramName, i)
			}
			if str == "" {
				return nil, fmt.Errorf("%s[%d] cannot be empty", paramName, i)
			}
			result = append(result, str)
		}
	case []string:
		if len(v) == 0 {
			return nil, fmt.Errorf("%s cannot be empty", paramName)
		}
		for i, str := range v {
			if str == "" {
				return nil, fmt.Errorf("%s[%d] cannot be empty", paramName, i)
			}
		}
		result = append(result, v...)
	default:
		return nil, fmt.Errorf("%s must be a string or array of strings", paramName)
	}

	return result, nil
}

// FormatResults creates a compact JSON string from batch results. Embedded
// results are kept compact so their measured size is the size delivered.
func FormatResults(results []Result) string {
	br := BatchResult{
		Total:   len(results),
		Results: results,
	}

	for _, r := range results {
		if r.Status == StatusSuccess {
			br.Successful++
		} else {
			br.Failed++
		}
	}

	jsonBytes, _ := json.Marshal(br)
	return string(jsonBytes)
}

// FitResults formats results and, while the output is larger than maxSize,
// replaces the largest successful result with what shrink returns for it.
// Every result is shrunk at most once; the last output is returned even if
// it still does not fit.
func FitResults(results []Result, maxSize int, shrink func(Result) Result) string {
	output := FormatResults(results)
	shrunk := make([]bool, len(results))
	for len(output) > maxSize {
		i := largestResult(results, shrunk)
		if i < 0 {
			break
		}
		results[i] = shrink(results[i])
		shrunk[i] = true
		output = FormatResults(results)
	}
	return output
}

func largestResult(results []Result, skip []bool) int {
	best := -1
	for i, r := range results {
		if skip[i] || r.Status != StatusSuccess {
			continue
		}
		if best < 0 || len(r.Result) > len(results[best].Result) {
			best = i
		}
	}
	return best
}

// ProcessBatch runs fn for every id with at most limit calls in flight and
// returns the results in input order. A failing item does not stop the
// others. limit <= 0 selects DefaultConcurrency.
func ProcessBatch(ctx context.Context, ids []string, limit int, fn func(ctx context.Context, id string) (json.RawMessage, error)) []Result {
	if limit <= 0 {
		limit = DefaultConcurrency
	}

	results := make([]Result, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)

	for i, id := range ids {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				results[i] = NewErrorResult(id, err)
				return nil
			}
			res, err := fn(gctx, id)
			if err != nil {
				results[i] = NewErrorResult(id, err)
			} else {
				results[i] = NewSuccessResult(id, res)
			}
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// NewSuccessResult creates a success result
func NewSuccessResult(id string, result json.RawMessage) Result {
	return Result{
		ID:     id,
		Status: StatusSuccess,
		Result: result,
	}
}

// NewErrorResult creates an error result
func NewErrorResult(id string, err error) Result {
	return Result{
		ID:     id,
		Status: StatusError,
		Error:  err.Error(),
	}
}
