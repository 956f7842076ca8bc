//go:build !tinygo

package rtt

import "github.com/golang/glog"

// Registry logging goes to glog on hosted builds. The write and read paths
// never log.

func logInfof(format string, args ...interface{}) {
	glog.V(2).Infof(format, args...)
}

func logWarningf(format string, args ...interface{}) {
	glog.Warningf(format, args...)
}
