package core

import "fmt"

// Binary byte units.
const (
	BytesPerKB int64 = 1024
	BytesPerMB int64 = 1024 * BytesPerKB
	BytesPerGB int64 = 1024 * BytesPerMB
	BytesPerTB int64 = 1024 * BytesPerGB
)

// FormatBytes renders a byte count with two decimals in the largest unit
// that fits: FormatBytes(1536) == "1.50 KB". Negative counts render as 0 B.
func FormatBytes(bytes int64) string {
	if bytes < 0 {
		bytes = 0
	}

	units := []struct {
		size int64
		name string
	}{
		{BytesPerTB, "TB"},
		{BytesPerGB, "GB"},
		{BytesPerMB, "MB"},
		{BytesPerKB, "KB"},
	}
	for _, u := range units {
		if bytes >= u.size {
			return fmt.Sprintf("%.2f %s", float64(bytes)/float64(u.size), u.name)
		}
	}
	return fmt.Sprintf("%d B", bytes)
}
