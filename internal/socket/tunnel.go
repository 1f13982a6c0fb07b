package socket

import (
	"bufio"
	"context"
	"encoding/base64"
	"fmt"
	"net"
	"net/textproto"
	"strings"
	"time"

	"github.com/go-excon/excon/internal/model"
)

// connectTunnel issues a bare CONNECT request over conn and waits for a 200
// response, establishing an https tunnel through an http(s) proxy. Grounded
// on the teacher's internal/dialer/proxy.go DialContextOverProxy, minimized
// to the CONNECT exchange since the wire layer (internal/wire) owns request
// serialization for every other method.
func connectTunnel(ctx context.Context, conn net.Conn, d *model.Datum) error {
	if dl, ok := ctx.Deadline(); ok {
		conn.SetDeadline(dl)
		defer conn.SetDeadline(time.Time{})
	}

	target := net.JoinHostPort(d.Host, d.Port)

	req := "CONNECT " + target + " HTTP/1.1\r\nHost: " + target + "\r\n"
	if d.Proxy.User != "" {
		auth := d.Proxy.User + ":" + d.Proxy.Password
		req += "Proxy-Authorization: Basic " + base64.StdEncoding.EncodeToString([]byte(auth)) + "\r\n"
	}
	req += "\r\n"

	if _, err := conn.Write([]byte(req)); err != nil {
		return err
	}

	tp := textproto.NewReader(bufio.NewReader(conn))
	line, err := tp.ReadLine()
	if err != nil {
		return err
	}
	_, status, ok := strings.Cut(line, " ")
	if !ok || len(status) < 3 {
		return fmt.Errorf("excon: malformed CONNECT response: %q", line)
	}
	if _, err := tp.ReadMIMEHeader(); err != nil {
		return err
	}
	if status[:3] != "200" {
		return fmt.Errorf("excon: proxy CONNECT failed: %s", status)
	}
	return nil
}
