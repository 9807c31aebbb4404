// Package account loads the main query of an account and decides how its
// failures are presented: as warnings next to cached data, or as a fatal
// condition when there is nothing to show.
package account

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// ErrNoData is returned when the main query failed and there is no cached
// data to fall back on.
var ErrNoData = errors.New("main query failed before any data was cached")

const (
	defaultConnectionMessage = "you are offline, showing cached data"
	defaultRequestMessage    = "unable to reach the server, showing " +
		"cached data"
)

// GraphQLError is an error returned by the server next to, or instead of,
// the query data.
type GraphQLError struct {
	Message    string                 `json:"message"`
	Path       []interface{}          `json:"path,omitempty"`
	Extensions map[string]interface{} `json:"extensions,omitempty"`
}

func (e GraphQLError) Error() string {
	return e.Message
}

// QueryError is the failure of a single main query. Either field may be
// set, or both.
type QueryError struct {
	GraphQLErrors []GraphQLError
	NetworkError  error
}

// Empty reports whether the query succeeded.
func (q QueryError) Empty() bool {
	return len(q.GraphQLErrors) == 0 && q.NetworkError == nil
}

func (q QueryError) Error() string {
	msgs := make([]string, 0, len(q.GraphQLErrors)+1)
	for _, e := range q.GraphQLErrors {
		msgs = append(msgs, e.Message)
	}
	if q.NetworkError != nil {
		msgs = append(msgs, q.NetworkError.Error())
	}

	return strings.Join(msgs, "; ")
}

// Warning is a message shown above data that may be stale.
type Warning struct {
	Message string `json:"message"`
}

// Probe reports whether the device has network connectivity.
type Probe interface {
	Connected(ctx context.Context) (bool, error)
}

// Sink receives diagnostic records. It never affects control flow.
type Sink interface {
	Record(ctx context.Context, err error)
}

// Policy tunes the classification.
type Policy struct {
	// FailOnNetworkErrorWithoutCache makes a network error on the first
	// load fatal. By default it is only recorded.
	FailOnNetworkErrorWithoutCache bool

	// ConnectionMessage and RequestMessage are the warnings shown when a
	// refresh fails while offline and while online respectively.
	ConnectionMessage string
	RequestMessage    string
}

func (p Policy) connectionMessage() string {
	if p.ConnectionMessage != "" {
		return p.ConnectionMessage
	}

	return defaultConnectionMessage
}

func (p Policy) requestMessage() string {
	if p.RequestMessage != "" {
		return p.RequestMessage
	}

	return defaultRequestMessage
}

// Outcome is the result of classifying a query error.
type Outcome struct {
	Warnings []Warning

	// Fatal is set when the caller cannot render without the data. The
	// accompanying error wraps ErrNoData.
	Fatal bool
}

// Classify decides how qerr is presented given whether cached data exists.
// A nil probe is treated as connected and a nil sink drops records.
func Classify(ctx context.Context, qerr QueryError, hasCachedData bool,
	probe Probe, sink Sink, policy Policy) (Outcome, error) {

	var out Outcome

	record := func(err error) {
		if sink != nil {
			sink.Record(ctx, err)
		}
	}

	if len(qerr.GraphQLErrors) > 0 {
		if !hasCachedData {
			for _, e := range qerr.GraphQLErrors {
				record(e)
			}

			out.Fatal = true
			return out, fmt.Errorf("%w: %v", ErrNoData, qerr)
		}

		for _, e := range qerr.GraphQLErrors {
			out.Warnings = append(out.Warnings, Warning{
				Message: e.Message,
			})
		}
	}

	if qerr.NetworkError == nil {
		return out, nil
	}

	if !hasCachedData {
		record(qerr.NetworkError)

		if policy.FailOnNetworkErrorWithoutCache {
			out.Fatal = true
			return out, fmt.Errorf("%w: %v", ErrNoData,
				qerr.NetworkError)
		}

		return out, nil
	}

	connected := true
	if probe != nil {
		ok, err := probe.Connected(ctx)
		if err != nil {
			record(fmt.Errorf("connectivity probe failed: %w", err))
		} else {
			connected = ok
		}
	}

	msg := policy.requestMessage()
	if !connected {
		msg = policy.connectionMessage()
	}
	out.Warnings = append(out.Warnings, Warning{Message: msg})

	return out, nil
}
