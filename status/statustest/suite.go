// Package statustest 提供各存储后端共用的 Store 行为一致性检查。
package statustest

import (
	"context"
	"errors"
	"time"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/mengeric/scrape-trigger-go/status"
)

// Conformance 在当前 Convey 作用域内校验 status.Store 的读写约定。
// newStore 每次调用必须返回一个空的、互不共享数据的实例。
func Conformance(newStore func() status.Store) {
	ctx := context.Background()
	started := time.Date(2024, time.March, 1, 8, 0, 0, 0, time.UTC)
	ended := started.Add(90 * time.Second)

	Convey("empty store reads as idle", func() {
		st := newStore()
		got, err := st.Read(ctx)
		So(err, ShouldBeNil)
		So(got.State, ShouldEqual, status.StateIdle)
		So(got.StartedAt, ShouldBeNil)
		So(got.EndedAt, ShouldBeNil)
		So(got.ResultMessage, ShouldBeNil)
	})

	Convey("writing state keeps previously written startedAt", func() {
		st := newStore()
		So(st.Write(ctx, status.Patch{State: status.Ptr(status.StateRunning), StartedAt: &started, ClearOutcome: true}), ShouldBeNil)
		So(st.Write(ctx, status.Patch{State: status.Ptr(status.StateSucceeded), ResultMessage: status.Ptr("ok"), EndedAt: &ended}), ShouldBeNil)

		got, err := st.Read(ctx)
		So(err, ShouldBeNil)
		So(got.State, ShouldEqual, status.StateSucceeded)
		So(got.StartedAt, ShouldNotBeNil)
		So(got.StartedAt.Equal(started), ShouldBeTrue)
		So(got.EndedAt, ShouldNotBeNil)
		So(got.EndedAt.Equal(ended), ShouldBeTrue)
		So(*got.ResultMessage, ShouldEqual, "ok")
	})

	Convey("entering running clears the previous outcome", func() {
		st := newStore()
		So(st.Write(ctx, status.Patch{State: status.Ptr(status.StateFailed), StartedAt: &started, EndedAt: &ended, ResultMessage: status.Ptr("boom")}), ShouldBeNil)
		next := ended.Add(time.Hour)
		So(st.Write(ctx, status.Patch{State: status.Ptr(status.StateRunning), StartedAt: &next, ClearOutcome: true}), ShouldBeNil)

		got, err := st.Read(ctx)
		So(err, ShouldBeNil)
		So(got.State, ShouldEqual, status.StateRunning)
		So(got.StartedAt.Equal(next), ShouldBeTrue)
		So(got.EndedAt, ShouldBeNil)
		So(got.ResultMessage, ShouldBeNil)
	})

	Convey("repeated reads without writes are identical", func() {
		st := newStore()
		So(st.Write(ctx, status.Patch{State: status.Ptr(status.StateSucceeded), StartedAt: &started, EndedAt: &ended, ResultMessage: status.Ptr("done")}), ShouldBeNil)
		a, err := st.Read(ctx)
		So(err, ShouldBeNil)
		b, err := st.Read(ctx)
		So(err, ShouldBeNil)
		So(b.State, ShouldEqual, a.State)
		So(b.StartedAt.Equal(*a.StartedAt), ShouldBeTrue)
		So(b.EndedAt.Equal(*a.EndedAt), ShouldBeTrue)
		So(*b.ResultMessage, ShouldEqual, *a.ResultMessage)
	})

	Convey("invalid state is rejected and leaves the record untouched", func() {
		st := newStore()
		err := st.Write(ctx, status.Patch{State: status.Ptr(status.State("paused"))})
		So(errors.Is(err, status.ErrInvalidState), ShouldBeTrue)
		got, err := st.Read(ctx)
		So(err, ShouldBeNil)
		So(got.State, ShouldEqual, status.StateIdle)
	})
}
