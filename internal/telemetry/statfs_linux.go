//go:build linux

package telemetry

import "golang.org/x/sys/unix"

// Statfs reads block statistics with statfs(2). The fragment size is the
// unit block counts are expressed in, so it is preferred when set.
func Statfs(path string) (FSStat, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return FSStat{}, err
	}

	blockSize := uint64(st.Bsize)
	if st.Frsize > 0 {
		blockSize = uint64(st.Frsize)
	}

	return FSStat{
		BlockSize:       blockSize,
		Blocks:          st.Blocks,
		BlocksAvailable: st.Bavail,
	}, nil
}
