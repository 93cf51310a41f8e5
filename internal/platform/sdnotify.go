package platform

import (
	"fmt"
	"net"
	"os"
	"strings"
)

// sd_notify states understood by systemd.
const (
	NotifyReady    = "READY=1"
	NotifyStopping = "STOPPING=1"
)

// NotifyStatus formats a free-form STATUS= line.
func NotifyStatus(format string, args ...any) string {
	return "STATUS=" + fmt.Sprintf(format, args...)
}

// Notify sends state lines to the service manager over $NOTIFY_SOCKET. It
// does nothing when the variable is unset, which is the case outside a
// Type=notify unit.
func Notify(states ...string) error {
	socket := os.Getenv("NOTIFY_SOCKET")
	if socket == "" {
		return nil
	}

	// Abstract namespace sockets are announced with a leading '@'.
	if strings.HasPrefix(socket, "@") {
		socket = "\x00" + socket[1:]
	}

	conn, err := net.DialUnix("unixgram", nil, &net.UnixAddr{Name: socket, Net: "unixgram"})
	if err != nil {
		return fmt.Errorf("failed to connect to notify socket: %w", err)
	}
	defer func() { _ = conn.Close() }()

	if _, err := conn.Write([]byte(strings.Join(states, "\n"))); err != nil {
		return fmt.Errorf("failed to send notification to service manager: %w", err)
	}
	return nil
}
