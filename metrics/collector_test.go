package metrics

import (
	"context"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestCollectHostMetric(t *testing.T) {
	Convey("collect metrics should not panic and be in range", t, func() {
		m := CollectHostMetric(context.Background())
		So(m.CPUProcessors, ShouldBeGreaterThanOrEqualTo, 1)
		So(m.Goroutines, ShouldBeGreaterThanOrEqualTo, 1)
		So(m.DiskUsageRatio, ShouldBeBetweenOrEqual, 0, 1)
		So(m.ProcUsedMemGB, ShouldBeGreaterThanOrEqualTo, 0)
	})
}
