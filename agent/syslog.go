package agent

import (
	"bytes"
	"sync"

	gsyslog "github.com/hashicorp/go-syslog"
)

// syslogWriter tees log lines produced by the agent's bracketed-level
// logger to the local syslog daemon, mapping chandysim's own [LEVEL]
// bracket convention onto syslog priorities. Adapted from
// command/agent/syslog_writer.go, ported from the stdlib log/syslog
// package to the portable github.com/hashicorp/go-syslog so the same
// writer resolves on platforms without native Unix syslog.
type syslogWriter struct {
	once sync.Once
	w    gsyslog.Syslogger
}

func newSyslogWriter() (*syslogWriter, error) {
	w, err := gsyslog.NewLogger(gsyslog.LOG_INFO, "DAEMON", "chandysim")
	if err != nil {
		return nil, err
	}
	return &syslogWriter{w: w}, nil
}

func (s *syslogWriter) Write(p []byte) (int, error) {
	level := "INFO"
	if x := bytes.IndexByte(p, '['); x >= 0 {
		if y := bytes.IndexByte(p[x:], ']'); y >= 0 {
			level = string(p[x+1 : x+y])
		}
	}

	var err error
	switch level {
	case "DEBUG":
		err = s.w.WriteLevel(gsyslog.LOG_DEBUG, p)
	case "INFO":
		err = s.w.WriteLevel(gsyslog.LOG_INFO, p)
	case "WARN":
		err = s.w.WriteLevel(gsyslog.LOG_WARNING, p)
	case "ERR":
		err = s.w.WriteLevel(gsyslog.LOG_ERR, p)
	default:
		err = s.w.WriteLevel(gsyslog.LOG_INFO, p)
	}
	if err != nil {
		return 0, err
	}
	return len(p), nil
}
