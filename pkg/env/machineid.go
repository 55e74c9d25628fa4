package env

import (
	"os"

	"github.com/denisbrodbeck/machineid"
	"github.com/golang/glog"
)

// MachineID retrieves the ID identifying the machine, hashed with the
// application name so the raw machine ID is never exposed. It falls back
// to the host name.
func MachineID() string {
	id, err := machineid.ProtectedID("mfreader")
	if err == nil {
		return id[:16]
	}
	glog.Warningf("machine ID not available: %v", err)
	if id, err = os.Hostname(); err == nil {
		return id
	}
	panic(err)
}
