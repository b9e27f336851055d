//go:build !unix

package tailer

import "os"

// Device and inode numbers are not exposed here; rotation detection falls
// back to os.SameFile and size checks.
func identityOf(os.FileInfo) (dev, ino uint64) {
	return 0, 0
}
