//go:build unix

package race

import (
	"fmt"
	"net"
	"os"
)

// AsConn adopts a connected descriptor returned by Connect into a
// net.Conn. The descriptor is consumed whether or not adoption succeeds;
// the caller must only close the returned connection.
func AsConn(fd int) (net.Conn, error) {
	f := os.NewFile(uintptr(fd), "raced-connection")
	if f == nil {
		return nil, fmt.Errorf("invalid descriptor %d", fd)
	}
	// net.FileConn duplicates the descriptor, so the original is closed
	// here in every outcome.
	defer f.Close()

	conn, err := net.FileConn(f)
	if err != nil {
		return nil, fmt.Errorf("net.FileConn: %w", err)
	}

	return conn, nil
}
