//go:build !unix

package daemon

import "os"

func defaultSignals() []os.Signal {
	return []os.Signal{os.Interrupt}
}
