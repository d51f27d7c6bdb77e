// Copyright 2025 TinyStore Authors
// SPDX-License-Identifier: Apache-2.0

package utils

import (
	"net"
	"strconv"
	"strings"
)

// JoinHostPort is net.JoinHostPort that tolerates an already bracketed
// IPv6 host.
func JoinHostPort(host string, port int) string {
	portStr := strconv.Itoa(port)
	if strings.HasPrefix(host, "[") && strings.HasSuffix(host, "]") {
		return host + ":" + portStr
	}
	return net.JoinHostPort(host, portStr)
}

// NewListener opens a TCP listener on addr.
func NewListener(addr string) (net.Listener, error) {
	return net.Listen("tcp", addr)
}
