package clock

import (
	"time"

	infraClock "github.com/weisyn/memwatch/pkg/interfaces/infrastructure/clock"
)

// SystemClock 使用系统真实时间
type SystemClock struct{}

func NewSystemClock() infraClock.Clock { return &SystemClock{} }

func (c *SystemClock) Now() time.Time                         { return time.Now() }
func (c *SystemClock) Since(t time.Time) time.Duration        { return time.Since(t) }
func (c *SystemClock) Unix() int64                            { return time.Now().Unix() }
func (c *SystemClock) UnixNano() int64                        { return time.Now().UnixNano() }
func (c *SystemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

func (c *SystemClock) NewTicker(d time.Duration) infraClock.Ticker {
	return &systemTicker{t: time.NewTicker(d)}
}

type systemTicker struct{ t *time.Ticker }

func (t *systemTicker) C() <-chan time.Time { return t.t.C }
func (t *systemTicker) Stop()               { t.t.Stop() }
