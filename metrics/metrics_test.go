package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestErrToLabel(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{
			name: "nil error",
			err:  nil,
			want: "nil",
		},
		{
			name: "plain words",
			err:  errors.New("connection refused"),
			want: "connection_refused",
		},
		{
			name: "punctuation stripped",
			err:  errors.New("git clone of https://x.test failed"),
			want: "git_clone_of_httpsxtest_failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, errToLabel(tt.err))
		})
	}
}

func TestRecordErrorDetailsNilIsNoop(t *testing.T) {
	before := testutil.CollectAndCount(errorsTotal)
	RecordErrorDetails("storage", nil)
	assert.Equal(t, before, testutil.CollectAndCount(errorsTotal))
}

func TestRecordTest(t *testing.T) {
	RecordTest("rig-metrics-test", "clone_linux", true, 1500*time.Millisecond)
	RecordTest("rig-metrics-test", "clone_linux", true, 2500*time.Millisecond)
	RecordTest("rig-metrics-test", "clone_linux", false, 100*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(testsTotal.WithLabelValues("rig-metrics-test", "clone_linux", resultSuccess)))
	assert.Equal(t, 1.0, testutil.ToFloat64(testsTotal.WithLabelValues("rig-metrics-test", "clone_linux", resultFailure)))

	// The gauge tracks the most recent execution.
	assert.Equal(t, 0.1, testutil.ToFloat64(testDuration.WithLabelValues("rig-metrics-test", "clone_linux")))
}
