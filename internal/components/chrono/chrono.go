package chrono

import (
	"sync"
	"time"
)

var chicago *time.Location

func init() {
	var err error
	chicago, err = time.LoadLocation("America/Chicago")
	if err != nil {
		chicago = time.UTC
	}
}

// Chicago returns a [*time.Location] for America/Chicago, the county's timezone.
func Chicago() *time.Location {
	return chicago
}

// TimeAPI is the interface that anything depending on the system clock should use.
type TimeAPI interface {
	// Now returns the current time.
	Now() time.Time
}

// StandardTime is the standard implementation of TimeAPI using the standard library.
type StandardTime struct{}

// NewStandardTime is the constructor of StandardTime.
func NewStandardTime() StandardTime {
	return StandardTime{}
}

func (StandardTime) Now() time.Time {
	return time.Now().In(chicago)
}

// FakeTime is a TimeAPI whose time only moves when told to.
type FakeTime struct {
	mutex sync.Mutex
	now   time.Time
}

// NewFakeTime creates a FakeTime starting at now.
func NewFakeTime(now time.Time) *FakeTime {
	return &FakeTime{now: now}
}

func (f *FakeTime) Now() time.Time {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	return f.now
}

// Advance moves the clock forward by d.
func (f *FakeTime) Advance(d time.Duration) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.now = f.now.Add(d)
}

// Set moves the clock to t.
func (f *FakeTime) Set(t time.Time) {
	f.mutex.Lock()
	defer f.mutex.Unlock()
	f.now = t
}
