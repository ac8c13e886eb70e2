/*
 * Copyright 2025 Carver Automation Corporation.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package routeros

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"

	api "github.com/go-routeros/routeros/v3"
)

// tlsPorts are API ports that expect a TLS handshake.
var tlsPorts = map[int]bool{8729: true, 443: true}

// APIDialer dials the RouterOS binary API using the go-routeros client.
// Wire framing and login live entirely in the client library.
type APIDialer struct {
	// InsecureSkipVerify disables certificate checks on TLS ports. Devices
	// ship self-signed certificates out of the box.
	InsecureSkipVerify bool
}

// Dial implements Dialer.
func (d *APIDialer) Dial(ctx context.Context, host string, port int, username, password string) (Conn, error) {
	addr := net.JoinHostPort(host, strconv.Itoa(port))

	var (
		client *api.Client
		err    error
	)

	if tlsPorts[port] {
		cfg := &tls.Config{InsecureSkipVerify: d.InsecureSkipVerify} //nolint:gosec // self-signed device certs
		client, err = api.DialTLSContext(ctx, addr, username, password, cfg)
	} else {
		client, err = api.DialContext(ctx, addr, username, password)
	}

	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", addr, err)
	}

	return &apiConn{client: client, closed: make(chan struct{})}, nil
}

type apiConn struct {
	client *api.Client

	closeOnce sync.Once
	closed    chan struct{}
}

// Run translates a command plus "key=value" arguments into API words and
// flattens the reply sentences into rows.
func (c *apiConn) Run(ctx context.Context, command string, args ...string) ([]Row, error) {
	sentence := make([]string, 0, len(args)+1)
	sentence = append(sentence, command)

	for _, arg := range args {
		sentence = append(sentence, "="+arg)
	}

	reply, err := c.client.RunContext(ctx, sentence...)
	if err != nil {
		// A trap is the device rejecting the command; the transport is
		// fine. Anything else means the channel is gone.
		var devErr *api.DeviceError
		if !errors.As(err, &devErr) {
			c.markClosed()
		}

		return nil, err
	}

	rows := make([]Row, 0, len(reply.Re))
	for _, sentence := range reply.Re {
		rows = append(rows, Row(sentence.Map))
	}

	return rows, nil
}

func (c *apiConn) Closed() <-chan struct{} {
	return c.closed
}

func (c *apiConn) Close() error {
	c.markClosed()
	c.client.Close()

	return nil
}

func (c *apiConn) markClosed() {
	c.closeOnce.Do(func() { close(c.closed) })
}
