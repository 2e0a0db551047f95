package log

import (
	"fmt"
	"net"
	"os"
	"time"
)

// loggedConn wraps a net.Conn and copies all read and written data to a file.
type loggedConn struct {
	conn    net.Conn
	logFile *os.File
}

func (lc *loggedConn) Read(b []byte) (int, error) {
	n, err := lc.conn.Read(b)
	if n > 0 {
		if _, werr := lc.logFile.Write(b[:n]); werr != nil {
			return 0, fmt.Errorf("logging read data: %w", werr)
		}
	}
	return n, err
}

func (lc *loggedConn) Write(b []byte) (int, error) {
	n, err := lc.conn.Write(b)
	if n > 0 {
		if _, werr := lc.logFile.Write(b[:n]); werr != nil {
			return 0, fmt.Errorf("logging written data: %w", werr)
		}
	}
	return n, err
}

func (lc *loggedConn) Close() error {
	err := lc.conn.Close()
	if cerr := lc.logFile.Close(); err == nil {
		err = cerr
	}
	return err
}

func (lc *loggedConn) LocalAddr() net.Addr  { return lc.conn.LocalAddr() }
func (lc *loggedConn) RemoteAddr() net.Addr { return lc.conn.RemoteAddr() }

func (lc *loggedConn) SetDeadline(t time.Time) error      { return lc.conn.SetDeadline(t) }
func (lc *loggedConn) SetReadDeadline(t time.Time) error  { return lc.conn.SetReadDeadline(t) }
func (lc *loggedConn) SetWriteDeadline(t time.Time) error { return lc.conn.SetWriteDeadline(t) }

// NewLoggedConn wraps a network connection so that all data read from and
// written to it is also appended to the file at logFilePath. Closing the
// returned connection closes the log file as well.
func NewLoggedConn(conn net.Conn, logFilePath string) (net.Conn, error) {
	logFile, err := os.OpenFile(logFilePath, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening log file %s: %w", logFilePath, err)
	}

	return &loggedConn{conn: conn, logFile: logFile}, nil
}
