package sink

import (
	"context"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"sync"
)

// PutVal writes samples in collectd's plain-text protocol, as consumed by the
// exec plugin:
//
//	PUTVAL "host/systemd-sshd/gauge-running" interval=60 1700000000:1
type PutVal struct {
	mu   sync.Mutex
	w    io.Writer
	host string
}

// NewPutVal writes to w. An empty host falls back to $COLLECTD_HOSTNAME, then
// the OS hostname.
func NewPutVal(w io.Writer, host string) *PutVal {
	return &PutVal{w: w, host: resolveHost(host)}
}

func (p *PutVal) Dispatch(ctx context.Context, s Sample) error {
	_ = ctx
	line := FormatPutVal(p.host, s)

	p.mu.Lock()
	defer p.mu.Unlock()
	_, err := io.WriteString(p.w, line)
	return err
}

// FormatPutVal renders one PUTVAL line, newline included.
func FormatPutVal(host string, s Sample) string {
	var b strings.Builder
	b.WriteString(`PUTVAL "`)
	b.WriteString(host)
	b.WriteString("/")
	b.WriteString(s.Identifier())
	b.WriteString(`"`)
	if s.Interval > 0 {
		b.WriteString(" interval=")
		b.WriteString(strconv.FormatFloat(s.Interval.Seconds(), 'f', -1, 64))
	}
	b.WriteString(" ")
	if s.Time.IsZero() {
		b.WriteString("N")
	} else {
		b.WriteString(strconv.FormatInt(s.Time.Unix(), 10))
	}
	b.WriteString(":")
	b.WriteString(formatValue(s.Value))
	b.WriteString("\n")
	return b.String()
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return "U"
	}
	return strconv.FormatFloat(v, 'g', -1, 64)
}

func resolveHost(host string) string {
	if h := strings.TrimSpace(host); h != "" {
		return h
	}
	if h := strings.TrimSpace(os.Getenv("COLLECTD_HOSTNAME")); h != "" {
		return h
	}
	h, err := os.Hostname()
	if err != nil || h == "" {
		return "localhost"
	}
	return h
}
