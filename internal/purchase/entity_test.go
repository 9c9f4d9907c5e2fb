// AngelaMos | 2026
// entity_test.go

package purchase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from, to Status
		allowed  bool
	}{
		{StatusPending, StatusCompleted, true},
		{StatusPending, StatusFailed, true},
		{StatusCompleted, StatusFailed, false},
		{StatusFailed, StatusCompleted, false},
		{StatusCompleted, StatusRefunded, false},
		{StatusPending, StatusRefunded, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestNewOrderID(t *testing.T) {
	at := time.Date(2026, 3, 9, 23, 30, 0, 0, time.UTC)

	a := NewOrderID(at)
	b := NewOrderID(at)

	assert.Regexp(t, `^ORD-20260309-[A-Z2-7]{8}$`, a)
	assert.NotEqual(t, a, b)
}

func TestClassFor(t *testing.T) {
	assert.Equal(t, BuyerStudent, ClassFor(true))
	assert.Equal(t, BuyerRegular, ClassFor(false))
}

func TestDownloadName(t *testing.T) {
	assert.Equal(t, "Go-in-Practice-2nd-ed", downloadName("Go in Practice: 2nd ed."))
	assert.Equal(t, "ebook", downloadName("???"))
}
