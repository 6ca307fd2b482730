package user_test

import (
	"testing"
	"time"

	"github.com/sratabix/gifselector/internal/user"
	"github.com/stretchr/testify/assert"
)

func Test_LoginThrottler_AllowsUntilLimitReached(t *testing.T) {
	t.Parallel()

	throttle := user.NewLoginThrottler(3, time.Minute)

	for i := 0; i < 3; i++ {
		assert.True(t, throttle.Allowed("10.0.0.1"), "attempt %d should be allowed", i+1)
		throttle.RecordFailure("10.0.0.1")
	}

	assert.False(t, throttle.Allowed("10.0.0.1"))
}

func Test_LoginThrottler_TracksAddressesIndependently(t *testing.T) {
	t.Parallel()

	throttle := user.NewLoginThrottler(1, time.Minute)
	throttle.RecordFailure("10.0.0.1")

	assert.False(t, throttle.Allowed("10.0.0.1"))
	assert.True(t, throttle.Allowed("10.0.0.2"))
}

func Test_LoginThrottler_SuccessClearsFailureHistory(t *testing.T) {
	t.Parallel()

	throttle := user.NewLoginThrottler(2, time.Minute)
	throttle.RecordFailure("10.0.0.1")
	throttle.RecordFailure("10.0.0.1")
	assert.False(t, throttle.Allowed("10.0.0.1"))

	throttle.RecordSuccess("10.0.0.1")
	assert.True(t, throttle.Allowed("10.0.0.1"))
}

func Test_LoginThrottler_FailuresExpireWithWindow(t *testing.T) {
	t.Parallel()

	throttle := user.NewLoginThrottler(1, time.Millisecond*50)
	throttle.RecordFailure("10.0.0.1")
	assert.False(t, throttle.Allowed("10.0.0.1"))

	time.Sleep(time.Millisecond * 80)
	assert.True(t, throttle.Allowed("10.0.0.1"))
}
