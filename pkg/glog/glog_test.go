package glog_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/orneryd/graphforge/pkg/glog"
)

func TestLoggerFiltersBelowLevel(t *testing.T) {
	var buf bytes.Buffer
	l := glog.New(&buf, glog.LevelWarn)

	l.Infof("should not appear")
	assert.Empty(t, buf.String())

	l.Warnf("reached %s", "threshold")
	assert.Contains(t, buf.String(), "[WARN] reached threshold")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, glog.LevelDebug, glog.ParseLevel("debug"))
	assert.Equal(t, glog.LevelError, glog.ParseLevel("ERROR"))
	assert.Equal(t, glog.LevelInfo, glog.ParseLevel("unknown"))
}
