package clock

import (
	"testing"
	"time"
)

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func fired(ch <-chan time.Time) bool {
	select {
	case <-ch:
		return true
	default:
		return false
	}
}

func TestFakeAfter(t *testing.T) {
	tests := []struct {
		name    string
		d       time.Duration
		advance time.Duration
		want    bool
	}{
		{name: "zero fires at once", d: 0, want: true},
		{name: "before deadline", d: 5 * time.Second, advance: 3 * time.Second},
		{name: "at deadline", d: 5 * time.Second, advance: 5 * time.Second, want: true},
		{name: "past deadline", d: 5 * time.Second, advance: time.Minute, want: true},
	}
	for _, tt := range tests {
		c := NewFake(epoch)
		ch := c.After(tt.d)
		c.Advance(tt.advance)
		if got := fired(ch); got != tt.want {
			t.Errorf("%s: fired = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestFakeTicker(t *testing.T) {
	c := NewFake(epoch)
	tk := c.NewTicker(time.Second)

	c.Advance(500 * time.Millisecond)
	if fired(tk.C) {
		t.Fatal("ticked early")
	}
	c.Advance(500 * time.Millisecond)
	if !fired(tk.C) {
		t.Fatal("no tick at interval")
	}
	c.Advance(3 * time.Second)
	if !fired(tk.C) || fired(tk.C) {
		t.Fatal("ticks past the buffer should be dropped")
	}

	tk.Stop()
	c.Advance(time.Minute)
	if fired(tk.C) {
		t.Fatal("ticked after Stop")
	}
	if got := c.Now(); !got.Equal(epoch.Add(time.Minute + 4*time.Second)) {
		t.Fatalf("Now = %v", got)
	}
}

func TestWaitForTimers(t *testing.T) {
	c := NewFake(epoch)
	done := make(chan struct{})
	go func() {
		<-c.After(time.Second)
		close(done)
	}()
	c.WaitForTimers(1)
	c.Advance(time.Second)
	<-done
}
