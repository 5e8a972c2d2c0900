package trigger

import (
	"context"
	"errors"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"go.uber.org/mock/gomock"

	"github.com/mengeric/scrape-trigger-go/client"
	"github.com/mengeric/scrape-trigger-go/mocks"
	"github.com/mengeric/scrape-trigger-go/status"
)

// stepClock 每次调用前进一分钟，便于区分开始与结束时间。
type stepClock struct {
	mu  sync.Mutex
	cur time.Time
}

func (c *stepClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cur = c.cur.Add(time.Minute)
	return c.cur
}

func newClock() *stepClock {
	return &stepClock{cur: time.Date(2024, time.January, 1, 8, 0, 0, 0, time.UTC)}
}

func TestOrchestrator_Run(t *testing.T) {
	ctx := context.Background()

	Convey("success result moves the record to succeeded", t, func() {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		tc := mocks.NewMockTriggerClient(ctrl)
		tc.EXPECT().Invoke(gomock.Any(), "https://scraper/run-scraper", "key").Return(client.Success("ok")).Times(1)

		st := status.NewMemoryStore()
		clk := newClock()
		o := New(WithEndpoint("https://scraper/run-scraper"), WithCredential("key"), WithStore(st), WithClient(tc), withClock(clk.now))
		So(o.Run(ctx), ShouldBeNil)

		got, err := st.Read(ctx)
		So(err, ShouldBeNil)
		So(got.State, ShouldEqual, status.StateSucceeded)
		So(*got.ResultMessage, ShouldEqual, "ok")
		So(got.StartedAt.Equal(time.Date(2024, time.January, 1, 8, 1, 0, 0, time.UTC)), ShouldBeTrue)
		So(got.EndedAt.Equal(time.Date(2024, time.January, 1, 8, 2, 0, 0, time.UTC)), ShouldBeTrue)
	})

	Convey("application failure moves the record to failed with the remote reason", t, func() {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		tc := mocks.NewMockTriggerClient(ctrl)
		tc.EXPECT().Invoke(gomock.Any(), gomock.Any(), gomock.Any()).Return(client.ApplicationFailure("bad creds"))

		st := status.NewMemoryStore()
		So(New(WithStore(st), WithClient(tc)).Run(ctx), ShouldBeNil)

		got, _ := st.Read(ctx)
		So(got.State, ShouldEqual, status.StateFailed)
		So(*got.ResultMessage, ShouldEqual, "bad creds")
		So(got.EndedAt, ShouldNotBeNil)
	})

	Convey("the record reads as running while the remote call is in flight", t, func() {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		st := status.NewMemoryStore()
		prevEnd := time.Unix(0, 0)
		So(st.Write(ctx, status.Patch{State: status.Ptr(status.StateFailed), EndedAt: &prevEnd, ResultMessage: status.Ptr("old")}), ShouldBeNil)

		var during status.JobStatus
		tc := mocks.NewMockTriggerClient(ctrl)
		tc.EXPECT().Invoke(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
			func(ctx context.Context, _, _ string) client.TriggerResult {
				during, _ = st.Read(ctx)
				return client.Success("done")
			})

		So(New(WithStore(st), WithClient(tc)).Run(ctx), ShouldBeNil)
		So(during.State, ShouldEqual, status.StateRunning)
		So(during.StartedAt, ShouldNotBeNil)
		So(during.EndedAt, ShouldBeNil)
		So(during.ResultMessage, ShouldBeNil)
	})

	Convey("a panic inside the call is recovered and recorded as failed", t, func() {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		tc := mocks.NewMockTriggerClient(ctrl)
		tc.EXPECT().Invoke(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
			func(context.Context, string, string) client.TriggerResult { panic("boom") })

		st := status.NewMemoryStore()
		var runErr error
		So(func() { runErr = New(WithStore(st), WithClient(tc)).Run(ctx) }, ShouldNotPanic)
		So(runErr, ShouldBeNil)

		got, _ := st.Read(ctx)
		So(got.State, ShouldEqual, status.StateFailed)
		So(*got.ResultMessage, ShouldEqual, "unexpected fault: boom")
		So(got.EndedAt, ShouldNotBeNil)
	})

	Convey("a cancelled caller context still gets its end time recorded", t, func() {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		cctx, cancel := context.WithCancel(ctx)
		tc := mocks.NewMockTriggerClient(ctrl)
		tc.EXPECT().Invoke(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
			func(context.Context, string, string) client.TriggerResult {
				cancel()
				return client.TransportFailure("context canceled")
			})

		st := status.NewMemoryStore()
		So(New(WithStore(st), WithClient(tc)).Run(cctx), ShouldBeNil)

		got, _ := st.Read(ctx)
		So(got.State, ShouldEqual, status.StateFailed)
		So(got.EndedAt, ShouldNotBeNil)
	})

	Convey("an unknown result kind is treated as a failure", t, func() {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		tc := mocks.NewMockTriggerClient(ctrl)
		tc.EXPECT().Invoke(gomock.Any(), gomock.Any(), gomock.Any()).Return(client.TriggerResult{})

		st := status.NewMemoryStore()
		So(New(WithStore(st), WithClient(tc)).Run(ctx), ShouldBeNil)
		got, _ := st.Read(ctx)
		So(got.State, ShouldEqual, status.StateFailed)
		So(*got.ResultMessage, ShouldContainSubstring, "unexpected trigger result")
	})

	Convey("every run returns in a terminal state with an end time", t, func() {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		tc := mocks.NewMockTriggerClient(ctrl)
		gomock.InOrder(
			tc.EXPECT().Invoke(gomock.Any(), gomock.Any(), gomock.Any()).Return(client.Success("a")),
			tc.EXPECT().Invoke(gomock.Any(), gomock.Any(), gomock.Any()).Return(client.TransportFailure("refused")),
			tc.EXPECT().Invoke(gomock.Any(), gomock.Any(), gomock.Any()).Return(client.ApplicationFailure("no")),
			tc.EXPECT().Invoke(gomock.Any(), gomock.Any(), gomock.Any()).Return(client.Success("b")),
		)
		st := status.NewMemoryStore()
		o := New(WithStore(st), WithClient(tc), withClock(newClock().now))
		want := []status.State{status.StateSucceeded, status.StateFailed, status.StateFailed, status.StateSucceeded}
		for _, w := range want {
			So(o.Run(ctx), ShouldBeNil)
			got, _ := st.Read(ctx)
			So(got.State, ShouldEqual, w)
			So(got.State.Terminal(), ShouldBeTrue)
			So(got.StartedAt, ShouldNotBeNil)
			So(got.EndedAt, ShouldNotBeNil)
			So(got.EndedAt.After(*got.StartedAt), ShouldBeTrue)
		}
	})
}

func TestOrchestrator_StoreErrors(t *testing.T) {
	ctx := context.Background()

	Convey("failing to record running skips the remote call", t, func() {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		st := mocks.NewMockStore(ctrl)
		tc := mocks.NewMockTriggerClient(ctrl)
		st.EXPECT().Write(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))

		err := New(WithStore(st), WithClient(tc)).Run(ctx)
		So(err, ShouldNotBeNil)
		So(err.Error(), ShouldContainSubstring, "record running")
	})

	Convey("failing to record the outcome is returned to the caller", t, func() {
		ctrl := gomock.NewController(t)
		defer ctrl.Finish()
		st := mocks.NewMockStore(ctrl)
		tc := mocks.NewMockTriggerClient(ctrl)
		gomock.InOrder(
			st.EXPECT().Write(gomock.Any(), gomock.Any()).Return(nil),
			st.EXPECT().Write(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, p status.Patch) error {
				So(*p.State, ShouldEqual, status.StateSucceeded)
				So(p.EndedAt, ShouldNotBeNil)
				return errors.New("connection reset")
			}),
		)
		tc.EXPECT().Invoke(gomock.Any(), gomock.Any(), gomock.Any()).Return(client.Success("ok"))

		err := New(WithStore(st), WithClient(tc)).Run(ctx)
		So(err, ShouldNotBeNil)
		So(err.Error(), ShouldContainSubstring, "record outcome")
	})
}

func TestOrchestrator_HTTPEndToEnd(t *testing.T) {
	ctx := context.Background()

	Convey("real HTTP client against a fake remote", t, func() {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-API-Key") != "secret" {
				w.WriteHeader(http.StatusUnauthorized)
				_, _ = w.Write([]byte(`{"status":"error","message":"bad creds"}`))
				return
			}
			_, _ = w.Write([]byte(`{"status":"success"}`))
		}))
		defer ts.Close()

		st := status.NewMemoryStore()
		So(New(WithEndpoint(ts.URL), WithCredential("secret"), WithStore(st)).Run(ctx), ShouldBeNil)
		got, _ := st.Read(ctx)
		So(got.State, ShouldEqual, status.StateSucceeded)
		So(*got.ResultMessage, ShouldEqual, client.DefaultSuccessMessage)

		So(New(WithEndpoint(ts.URL), WithCredential("nope"), WithStore(st)).Run(ctx), ShouldBeNil)
		got, _ = st.Read(ctx)
		So(got.State, ShouldEqual, status.StateFailed)
		So(*got.ResultMessage, ShouldEqual, "bad creds")
	})

	Convey("connection refused ends as failed with a transport description", t, func() {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		So(err, ShouldBeNil)
		addr := ln.Addr().String()
		_ = ln.Close()

		st := status.NewMemoryStore()
		o := New(WithEndpoint("http://"+addr+"/run-scraper"), WithStore(st))
		So(o.Run(ctx), ShouldBeNil)
		got, err := o.Status(ctx)
		So(err, ShouldBeNil)
		So(got.State, ShouldEqual, status.StateFailed)
		So(*got.ResultMessage, ShouldContainSubstring, "connection refused")
		So(got.EndedAt, ShouldNotBeNil)
	})

	Convey("status reads are idempotent between runs", t, func() {
		o := New()
		So(o.JobName(), ShouldEqual, DefaultJobName)
		a, err := o.Status(ctx)
		So(err, ShouldBeNil)
		b, err := o.Status(ctx)
		So(err, ShouldBeNil)
		So(a, ShouldResemble, b)
		So(a.State, ShouldEqual, status.StateIdle)
	})
}
