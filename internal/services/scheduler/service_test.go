package scheduler

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/tento/internal/common"
)

func TestService_RegisterAndFire(t *testing.T) {
	service := NewService(common.GetLogger())

	var fired atomic.Int32
	require.NoError(t, service.RegisterJob("tick", "* * * * * *", func() error {
		fired.Add(1)
		return nil
	}))
	require.NoError(t, service.Start())
	defer func() { _ = service.Stop() }()

	assert.True(t, service.IsRunning())
	require.Eventually(t, func() bool {
		return fired.Load() >= 1
	}, 3*time.Second, 50*time.Millisecond)

	status, err := service.GetJobStatus("tick")
	require.NoError(t, err)
	assert.Equal(t, "tick", status.Name)
	assert.Equal(t, "* * * * * *", status.Schedule)
	assert.NotNil(t, status.NextRun)
	require.Eventually(t, func() bool {
		status, err := service.GetJobStatus("tick")
		return err == nil && status.LastRun != nil
	}, 3*time.Second, 50*time.Millisecond)
}

func TestService_HandlerErrorRecorded(t *testing.T) {
	service := NewService(common.GetLogger())

	require.NoError(t, service.RegisterJob("failing", "* * * * * *", func() error {
		return fmt.Errorf("boom")
	}))
	require.NoError(t, service.Start())
	defer func() { _ = service.Stop() }()

	require.Eventually(t, func() bool {
		status, err := service.GetJobStatus("failing")
		return err == nil && status.LastError == "boom"
	}, 3*time.Second, 50*time.Millisecond)
}

func TestService_RegistrationValidation(t *testing.T) {
	service := NewService(common.GetLogger())

	err := service.RegisterJob("bad", "not a schedule", func() error { return nil })
	require.Error(t, err)

	err = service.RegisterJob("nohandler", "* * * * * *", nil)
	require.Error(t, err)

	require.NoError(t, service.RegisterJob("dup", "0 0 * * * *", func() error { return nil }))
	err = service.RegisterJob("dup", "0 0 * * * *", func() error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestService_StartStopLifecycle(t *testing.T) {
	service := NewService(common.GetLogger())

	assert.False(t, service.IsRunning())
	require.NoError(t, service.Start())
	assert.True(t, service.IsRunning())
	require.Error(t, service.Start())

	require.NoError(t, service.Stop())
	assert.False(t, service.IsRunning())
	require.NoError(t, service.Stop())
}

func TestService_UnknownJobStatus(t *testing.T) {
	service := NewService(common.GetLogger())
	_, err := service.GetJobStatus("missing")
	require.Error(t, err)
}
