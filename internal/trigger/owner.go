package trigger

import (
	"fmt"
	"os"
	"syscall"
)

// OwnerUID returns the uid owning path. The dispatcher consults it
// immediately before running a pipeline: markers owned by root are ignored
// so privileged automation cannot impersonate a user request.
func OwnerUID(path string) (int, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return -1, err
	}

	st, ok := fi.Sys().(*syscall.Stat_t)
	if !ok {
		return -1, fmt.Errorf("stat %s: no uid available", path)
	}
	return int(st.Uid), nil
}
