// Package portal is a client for the campus reservation portal: the IAAA
// single-sign-on flow, the day's shuttle catalog, the reservation workflow
// with its boarding QR codes, and the ride-history listing.
package portal

import (
	"time"

	"go.uber.org/zap"
)

const (
	defaultIAAABase  = "https://iaaa.pku.edu.cn"
	defaultWprocBase = "https://wproc.pku.edu.cn"
	defaultTimeout   = 15 * time.Second

	appID = "wproc"
)

// Client carries the fixed portal endpoints. Per-attempt state (cookies,
// token) lives in Session; the Client itself is safe to share.
type Client struct {
	iaaaBase  string
	wprocBase string
	timeout   time.Duration
	log       *zap.Logger
}

type Options struct {
	IAAABase  string
	WprocBase string
	Timeout   time.Duration
	Logger    *zap.Logger
}

func New(opts Options) *Client {
	c := &Client{
		iaaaBase:  opts.IAAABase,
		wprocBase: opts.WprocBase,
		timeout:   opts.Timeout,
		log:       opts.Logger,
	}
	if c.iaaaBase == "" {
		c.iaaaBase = defaultIAAABase
	}
	if c.wprocBase == "" {
		c.wprocBase = defaultWprocBase
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	return c
}

// Progress receives human-readable status lines, in order. A nil Progress
// discards them.
type Progress func(msg string)

func (p Progress) Emit(msg string) {
	if p != nil {
		p(msg)
	}
}
