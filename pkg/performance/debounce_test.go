package performance

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/filecoin-project/go-clock"
	"github.com/stretchr/testify/assert"
)

func TestDebounceCoalescesBursts(t *testing.T) {
	mock := clock.NewMock()
	d := NewDebouncer(mock, 200*time.Millisecond)

	var calls int32
	for i := 0; i < 5; i++ {
		d.Debounce("storage.json", func() { atomic.AddInt32(&calls, 1) })
		mock.Add(50 * time.Millisecond)
	}
	assert.Equal(t, 1, d.Pending())
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))

	mock.Add(200 * time.Millisecond)
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, 0, d.Pending())
}

func TestDebounceCancelAndClear(t *testing.T) {
	mock := clock.NewMock()
	d := NewDebouncer(mock, time.Second)

	var calls int32
	inc := func() { atomic.AddInt32(&calls, 1) }
	d.Debounce("a", inc)
	d.Debounce("b", inc)
	d.Cancel("a")
	assert.Equal(t, 1, d.Pending())
	d.Clear()
	assert.Equal(t, 0, d.Pending())

	mock.Add(2 * time.Second)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(0), atomic.LoadInt32(&calls))
}
