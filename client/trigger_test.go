package client

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

// newRemote 模拟远端爬虫服务，并记录收到的请求。
func newRemote(code int, body string, hits *int32, seen *http.Header) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		if seen != nil {
			*seen = r.Header.Clone()
		}
		if r.Method != http.MethodPost {
			http.Error(w, "method", http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(code)
		_, _ = w.Write([]byte(body))
	}))
}

func TestHTTPTriggerClient_Invoke(t *testing.T) {
	ctx := context.Background()

	Convey("success response without message uses the fixed confirmation", t, func() {
		var hits int32
		var hdr http.Header
		ts := newRemote(http.StatusOK, `{"status":"success"}`, &hits, &hdr)
		defer ts.Close()

		r := NewHTTPTriggerClient(0, "").Invoke(ctx, ts.URL, "k-123")
		So(r.Kind, ShouldEqual, ResultSuccess)
		So(r.Message, ShouldEqual, DefaultSuccessMessage)
		So(r.StatusCode, ShouldEqual, http.StatusOK)
		So(hdr.Get("X-API-Key"), ShouldEqual, "k-123")
		So(atomic.LoadInt32(&hits), ShouldEqual, 1)
	})

	Convey("success response keeps the remote message and custom header", t, func() {
		var hits int32
		var hdr http.Header
		ts := newRemote(http.StatusAccepted, `{"status":"success","message":"queued"}`, &hits, &hdr)
		defer ts.Close()

		r := NewHTTPTriggerClient(time.Second, "Authorization").Invoke(ctx, ts.URL, "Bearer x")
		So(r.OK(), ShouldBeTrue)
		So(r.Message, ShouldEqual, "queued")
		So(hdr.Get("Authorization"), ShouldEqual, "Bearer x")
	})

	Convey("remote rejection carries the remote message", t, func() {
		var hits int32
		b, _ := json.Marshal(map[string]string{"status": "error", "message": "bad creds"})
		ts := newRemote(http.StatusUnauthorized, string(b), &hits, nil)
		defer ts.Close()

		r := NewHTTPTriggerClient(0, "").Invoke(ctx, ts.URL, "wrong")
		So(r.Kind, ShouldEqual, ResultApplicationFailure)
		So(r.Message, ShouldEqual, "bad creds")
		So(r.StatusCode, ShouldEqual, http.StatusUnauthorized)
	})

	Convey("failure without message falls back to unknown error", t, func() {
		var hits int32
		ts := newRemote(http.StatusOK, `{"status":"busy"}`, &hits, nil)
		defer ts.Close()

		r := NewHTTPTriggerClient(0, "").Invoke(ctx, ts.URL, "k")
		So(r.Kind, ShouldEqual, ResultApplicationFailure)
		So(r.Message, ShouldEqual, UnknownErrorMessage)
	})

	Convey("non-2xx is a failure even when the body claims success", t, func() {
		var hits int32
		ts := newRemote(http.StatusInternalServerError, `{"status":"success"}`, &hits, nil)
		defer ts.Close()

		r := NewHTTPTriggerClient(0, "").Invoke(ctx, ts.URL, "k")
		So(r.Kind, ShouldEqual, ResultApplicationFailure)
		So(r.Message, ShouldEqual, UnknownErrorMessage)
	})

	Convey("non-JSON body becomes an application failure with a parse note", t, func() {
		var hits int32
		ts := newRemote(http.StatusBadGateway, `<html>upstream down</html>`, &hits, nil)
		defer ts.Close()

		r := NewHTTPTriggerClient(0, "").Invoke(ctx, ts.URL, "k")
		So(r.Kind, ShouldEqual, ResultApplicationFailure)
		So(r.Message, ShouldStartWith, "invalid response (HTTP 502)")
		So(atomic.LoadInt32(&hits), ShouldEqual, 1)
	})

	Convey("connection refused becomes a transport failure", t, func() {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		So(err, ShouldBeNil)
		addr := ln.Addr().String()
		_ = ln.Close()

		r := NewHTTPTriggerClient(time.Second, "").Invoke(ctx, "http://"+addr+"/run-scraper", "k")
		So(r.Kind, ShouldEqual, ResultTransportFailure)
		So(r.Message, ShouldContainSubstring, "connect")
		So(r.StatusCode, ShouldEqual, 0)
	})

	Convey("timeout becomes a transport failure", t, func() {
		ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			time.Sleep(200 * time.Millisecond)
		}))
		defer ts.Close()

		r := NewHTTPTriggerClient(20*time.Millisecond, "").Invoke(ctx, ts.URL, "k")
		So(r.Kind, ShouldEqual, ResultTransportFailure)
	})

	Convey("malformed endpoint is reported, not raised", t, func() {
		r := NewHTTPTriggerClient(0, "").Invoke(ctx, "://no-scheme", "k")
		So(r.Kind, ShouldEqual, ResultTransportFailure)
		So(r.Message, ShouldStartWith, "build request")
	})
}

func TestResultKind_String(t *testing.T) {
	Convey("kinds have stable names", t, func() {
		So(ResultSuccess.String(), ShouldEqual, "success")
		So(ResultApplicationFailure.String(), ShouldEqual, "application_failure")
		So(ResultTransportFailure.String(), ShouldEqual, "transport_failure")
		So(ResultKind(0).String(), ShouldEqual, "ResultKind(0)")
	})
}
