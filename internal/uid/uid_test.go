package uid

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestULID_StringLength(t *testing.T) {
	assert.Len(t, New().String(), timeLen+randomLen)
}

func TestULID_DecodeRecoversTimestamp(t *testing.T) {
	when := time.UnixMilli(1700000000000)
	s := NewAt(when).String()
	ms, err := Decode(s)
	require.NoError(t, err)
	assert.Equal(t, when.UnixMilli(), ms)
}

func TestULID_SortsByTime(t *testing.T) {
	earlier := NewAt(time.UnixMilli(1000)).String()
	later := NewAt(time.UnixMilli(2000)).String()
	assert.Less(t, earlier, later)
}

func TestULID_DecodeRejectsBadInput(t *testing.T) {
	_, err := Decode("too-short")
	assert.Error(t, err)
	_, err = Decode("ILOU-not-in-alphabet-xxxxx")
	assert.Error(t, err)
}
