// Package pipeio shuttles data between two endpoints, typically a
// network connection and the local terminal.
package pipeio

import (
	"fmt"
	"io"
	"sync"
)

// Pipe copies data between rwc1 and rwc2 in both directions until one
// side fails or reaches EOF, then closes both. Copy errors are reported
// through logfunc.
func Pipe(rwc1 io.ReadWriteCloser, rwc2 io.ReadWriteCloser, logfunc func(error)) {
	var wg sync.WaitGroup
	var o sync.Once

	closeBoth := func() {
		rwc1.Close()
		rwc2.Close()

		wg.Done()
	}
	wg.Add(1)

	go func() {
		if _, err := io.Copy(rwc1, rwc2); err != nil {
			logfunc(fmt.Errorf("io.Copy(rwc1, rwc2): %w", err))
		}

		o.Do(closeBoth)
	}()

	go func() {
		if _, err := io.Copy(rwc2, rwc1); err != nil {
			logfunc(fmt.Errorf("io.Copy(rwc2, rwc1): %w", err))
		}

		o.Do(closeBoth)
	}()

	wg.Wait()
}
