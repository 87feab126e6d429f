package listener

import (
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func dialAndWait(t *testing.T, addr net.Addr) net.Conn {
	t.Helper()
	conn, err := net.DialTimeout("tcp", addr.String(), time.Second)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func TestListenBindFailureReturnsNil(t *testing.T) {
	l := Listen("not-a-valid-host:999999", 8, nil)
	require.Nil(t, l)
}

func TestSliceDrainsAdmittedConnections(t *testing.T) {
	l := Listen("127.0.0.1:0", 8, nil)
	require.NotNil(t, l)
	t.Cleanup(l.Close)

	dialAndWait(t, l.Addr())
	dialAndWait(t, l.Addr())

	var got []net.Conn
	require.Eventually(t, func() bool {
		got = append(got, l.Slice()...)
		return len(got) == 2
	}, time.Second, time.Millisecond)

	for _, c := range got {
		_ = c.Close()
	}

	require.Empty(t, l.Slice(), "a second drain with nothing new admitted returns nothing")
}

func TestAdmissionHookRejectsConnection(t *testing.T) {
	rejected := make(chan struct{}, 1)
	l := Listen("127.0.0.1:0", 8, func(args SocketConnectEventArgs) bool {
		rejected <- struct{}{}
		return false
	})
	require.NotNil(t, l)
	t.Cleanup(l.Close)

	conn := dialAndWait(t, l.Addr())

	select {
	case <-rejected:
	case <-time.After(time.Second):
		t.Fatal("admission hook never ran")
	}

	require.Eventually(t, func() bool {
		return len(l.Slice()) == 0
	}, time.Second, time.Millisecond)

	buf := make([]byte, 1)
	_ = conn.SetReadDeadline(time.Now().Add(time.Second))
	_, err := conn.Read(buf)
	require.Error(t, err, "a rejected socket must be closed from the server side")
}

func TestAdmissionHookAllowsConnection(t *testing.T) {
	l := Listen("127.0.0.1:0", 8, func(args SocketConnectEventArgs) bool {
		return true
	})
	require.NotNil(t, l)
	t.Cleanup(l.Close)

	dialAndWait(t, l.Addr())

	require.Eventually(t, func() bool {
		return len(l.Slice()) == 1
	}, time.Second, time.Millisecond)
}
