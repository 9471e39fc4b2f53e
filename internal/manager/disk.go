package manager

import "golang.org/x/sys/unix"

// diskFreeGB 报告路径所在文件系统对非特权用户可用的空间（GB）。
func diskFreeGB(path string) (float64, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return 0, err
	}
	return float64(st.Bavail) * float64(st.Bsize) / (1024 * 1024 * 1024), nil
}
