package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestIDSource_StrictlyIncreasing(t *testing.T) {
	frozen := time.UnixMilli(1717200000000)
	ids := newIDSource("BK-", func() time.Time { return frozen })

	assert.Equal(t, "BK-1717200000000", ids.Next())
	assert.Equal(t, "BK-1717200000001", ids.Next())
	assert.Equal(t, "BK-1717200000002", ids.Next())
}

func TestIDSource_FollowsClock(t *testing.T) {
	now := time.UnixMilli(1000)
	ids := newIDSource("BK-", func() time.Time { return now })

	assert.Equal(t, "BK-1000", ids.Next())

	now = time.UnixMilli(5000)
	assert.Equal(t, "BK-5000", ids.Next())

	// a clock stepping backwards never repeats an id
	now = time.UnixMilli(10)
	assert.Equal(t, "BK-5001", ids.Next())
}
