package camunda

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/camunda/zeebe/clients/go/v8/pkg/entities"
	"github.com/camunda/zeebe/clients/go/v8/pkg/worker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"skymodel-workers/internal/common/config"
	"skymodel-workers/internal/common/errors"
	"skymodel-workers/internal/common/logger"
)

func createTestClient(maxRetries int) *Client {
	return &Client{config: &ClientConfig{
		ConnectionTimeout: time.Second,
		RetryConfig: &RetryConfig{
			MaxRetries: maxRetries,
			BaseDelay:  time.Millisecond,
			MaxDelay:   5 * time.Millisecond,
		},
	}}
}

func TestIsRetryableZeebeError(t *testing.T) {
	tests := []struct {
		msg  string
		want bool
	}{
		{"rpc error: code = Unavailable desc = connection refused", true},
		{"context deadline exceeded", true},
		{"write: broken pipe", true},
		{"rpc error: code = NotFound desc = job not found", false},
		{"rpc error: code = InvalidArgument", false},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			assert.Equal(t, tt.want, isRetryableZeebeError(fmt.Errorf("%s", tt.msg)))
		})
	}
}

func TestMapZeebeError(t *testing.T) {
	c := createTestClient(0)
	tests := []struct {
		msg  string
		code errors.ErrorCode
	}{
		{"connection reset by peer", "EXTERNAL_SERVICE_ERROR"},
		{"context deadline exceeded", "TIMEOUT_ERROR"},
		{"job 42 not found", "RESOURCE_NOT_FOUND"},
		{"something odd", "EXTERNAL_SERVICE_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			err := c.mapZeebeError(fmt.Errorf("%s", tt.msg), "complete-job", 2)
			assert.True(t, errors.IsCode(err, tt.code), err.Error())
			assert.Contains(t, err.Error(), "after 2 attempts")
		})
	}
}

func TestExecuteWithRetry(t *testing.T) {
	c := createTestClient(3)

	calls := 0
	result, err := c.ExecuteWithRetry(context.Background(), func(context.Context) (interface{}, error) {
		calls++
		if calls < 3 {
			return nil, fmt.Errorf("unavailable")
		}
		return "ok", nil
	}, "topology")
	require.NoError(t, err)
	assert.Equal(t, "ok", result)
	assert.Equal(t, 3, calls)

	calls = 0
	_, err = c.ExecuteWithRetry(context.Background(), func(context.Context) (interface{}, error) {
		calls++
		return nil, fmt.Errorf("job not found")
	}, "complete-job")
	assert.True(t, errors.IsCode(err, "RESOURCE_NOT_FOUND"))
	assert.Equal(t, 1, calls)
}

func TestRetryConfig_Delay(t *testing.T) {
	r := &RetryConfig{BaseDelay: time.Second, MaxDelay: 5 * time.Second}
	assert.Equal(t, time.Second, r.delay(0))
	assert.Equal(t, 4*time.Second, r.delay(2))
	assert.Equal(t, 5*time.Second, r.delay(3))
}

func TestConfigFrom(t *testing.T) {
	cfg := ConfigFrom(config.CamundaConfig{BrokerAddress: "zeebe:26500", Plaintext: true, RequestTimeout: 2500})
	assert.Equal(t, "zeebe:26500", cfg.GatewayAddress)
	assert.True(t, cfg.UsePlaintextConnection)
	assert.Equal(t, 2500*time.Millisecond, cfg.ConnectionTimeout)
	assert.Same(t, DefaultRetryConfig, cfg.RetryConfig)

	assert.Equal(t, 10*time.Second, ConfigFrom(config.CamundaConfig{}).ConnectionTimeout)
}

type stubHandler struct {
	enabled bool
}

func (s *stubHandler) Handle(worker.JobClient, entities.Job) {}

func (s *stubHandler) GetTaskType() string { return "sky-models.assemble" }
func (s *stubHandler) IsEnabled() bool     { return s.enabled }

func TestStartWorker_Disabled(t *testing.T) {
	jw := StartWorker(nil, &stubHandler{}, WorkerOptions{MaxJobsActive: 1}, logger.NewTestLogger(t))
	assert.Nil(t, jw)
}
