package migrate

import (
	"strings"
	"testing"
)

// BenchmarkChecksum benchmarks checksumming a large migration script
func BenchmarkChecksum(b *testing.B) {
	var sb strings.Builder
	for i := 0; i < 5000; i++ {
		sb.WriteString("INSERT INTO audit.events (id, payload) VALUES (1, '{\"k\": \"v\"}');\r\n")
	}
	content := []byte(sb.String())

	b.SetBytes(int64(len(content)))
	b.ReportAllocs()
	for b.Loop() {
		Checksum(content)
	}
}
