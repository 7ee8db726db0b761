package ids

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewAt(t *testing.T) {
	ts := time.UnixMilli(1700000000123)
	id := NewAt("deposit", ts)
	assert.Regexp(t, `^deposit_1700000000123_[0-9a-z]{9}$`, id)
	assert.NotEqual(t, id, NewAt("deposit", ts))
}

func TestNewOrderPrefix(t *testing.T) {
	assert.Regexp(t, `^inova_onramp_\d+_[0-9a-z]{9}$`, New("inova_onramp"))
}

func TestSequence(t *testing.T) {
	next := Sequence()
	assert.Equal(t, "proof_1", next("proof"))
	assert.Equal(t, "session_2", next("session"))
}
