package refcache

import (
	"crypto/md5"
	"fmt"
	"os"
)

// Fingerprint derives a cheap content-change proxy for a file from its size
// and modification time. Reading the file itself is deliberately avoided so
// startup stays fast even with large corpus files.
func Fingerprint(path string) (string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return "", fmt.Errorf("fingerprint %s: %w", path, err)
	}
	sum := md5.Sum(fmt.Appendf(nil, "%d:%d", info.Size(), info.ModTime().UnixNano()))
	return fmt.Sprintf("%x", sum), nil
}

func chunkID(path string, seq int) string {
	return fmt.Sprintf("%s#%d", path, seq)
}
