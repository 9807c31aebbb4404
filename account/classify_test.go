package account

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

type stubProbe struct {
	connected bool
	err       error
	calls     int
}

func (p *stubProbe) Connected(context.Context) (bool, error) {
	p.calls++
	return p.connected, p.err
}

type stubSink struct {
	mu      sync.Mutex
	records []error
}

func (s *stubSink) Record(_ context.Context, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = append(s.records, err)
}

func TestClassify(t *testing.T) {
	gqlErr := GraphQLError{Message: "e"}
	netErr := errors.New("dial tcp: connection refused")

	type want struct {
		warnings []Warning
		fatal    bool
		records  int
		probes   int
	}

	tests := []struct {
		name   string
		qerr   QueryError
		cached bool
		probe  *stubProbe
		policy Policy
		want   want
	}{
		{
			name:   "graphql errors with cache",
			qerr:   QueryError{GraphQLErrors: []GraphQLError{gqlErr}},
			cached: true,
			probe:  &stubProbe{connected: true},
			want: want{
				warnings: []Warning{{Message: "e"}},
			},
		},
		{
			name:   "graphql errors without cache",
			qerr:   QueryError{GraphQLErrors: []GraphQLError{gqlErr}},
			cached: false,
			probe:  &stubProbe{connected: true},
			want: want{
				fatal:   true,
				records: 1,
			},
		},
		{
			name: "several graphql errors without cache",
			qerr: QueryError{GraphQLErrors: []GraphQLError{
				gqlErr, {Message: "f"},
			}},
			probe: &stubProbe{connected: true},
			want: want{
				fatal:   true,
				records: 2,
			},
		},
		{
			name:   "offline with cache",
			qerr:   QueryError{NetworkError: netErr},
			cached: true,
			probe:  &stubProbe{connected: false},
			want: want{
				warnings: []Warning{{
					Message: defaultConnectionMessage,
				}},
				probes: 1,
			},
		},
		{
			name:   "online with cache",
			qerr:   QueryError{NetworkError: netErr},
			cached: true,
			probe:  &stubProbe{connected: true},
			policy: Policy{RequestMessage: "request failed"},
			want: want{
				warnings: []Warning{{Message: "request failed"}},
				probes:   1,
			},
		},
		{
			name:   "probe failure counts as online",
			qerr:   QueryError{NetworkError: netErr},
			cached: true,
			probe:  &stubProbe{err: errors.New("no route")},
			want: want{
				warnings: []Warning{{
					Message: defaultRequestMessage,
				}},
				records: 1,
				probes:  1,
			},
		},
		{
			name:  "network error without cache",
			qerr:  QueryError{NetworkError: netErr},
			probe: &stubProbe{connected: true},
			want: want{
				records: 1,
			},
		},
		{
			name:   "network error without cache when strict",
			qerr:   QueryError{NetworkError: netErr},
			probe:  &stubProbe{connected: true},
			policy: Policy{FailOnNetworkErrorWithoutCache: true},
			want: want{
				fatal:   true,
				records: 1,
			},
		},
		{
			name: "both errors with cache",
			qerr: QueryError{
				GraphQLErrors: []GraphQLError{gqlErr},
				NetworkError:  netErr,
			},
			cached: true,
			probe:  &stubProbe{connected: false},
			want: want{
				warnings: []Warning{
					{Message: "e"},
					{Message: defaultConnectionMessage},
				},
				probes: 1,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &stubSink{}

			out, err := Classify(
				context.Background(), tt.qerr, tt.cached, tt.probe,
				sink, tt.policy,
			)
			if tt.want.fatal {
				require.ErrorIs(t, err, ErrNoData)
			} else {
				require.NoError(t, err)
			}

			require.Equal(t, tt.want.fatal, out.Fatal)
			require.Equal(t, tt.want.warnings, out.Warnings)
			require.Len(t, sink.records, tt.want.records)
			require.Equal(t, tt.want.probes, tt.probe.calls)
		})
	}
}

func TestClassifyWithoutCollaborators(t *testing.T) {
	out, err := Classify(context.Background(), QueryError{
		NetworkError: errors.New("timeout"),
	}, true, nil, nil, Policy{})
	require.NoError(t, err)
	require.Equal(t, []Warning{{Message: defaultRequestMessage}},
		out.Warnings)
}
