package notifications

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/albapepper/darkauction/internal/clock"
	"github.com/albapepper/darkauction/internal/failure"
)

var testTime = time.Date(2026, 10, 19, 13, 55, 0, 0, time.UTC)

type captureSink struct {
	mu   sync.Mutex
	name string
	msgs []Message
	err  error
}

func (c *captureSink) Name() string { return c.name }

func (c *captureSink) Send(_ context.Context, msg Message) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.msgs = append(c.msgs, msg)
	return c.err
}

func TestWebhookSenderPayload(t *testing.T) {
	var (
		mu   sync.Mutex
		body []byte
		ct   string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		mu.Lock()
		body, ct = b, r.Header.Get("Content-Type")
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	s := NewWebhookSender(srv.URL, 0, nil)
	msg := SummaryReport("run-1", []Field{{Name: "Peak Players", Value: "8", Inline: true}}, testTime)
	if err := s.Send(context.Background(), msg); err != nil {
		t.Fatalf("Send: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if ct != "application/json" {
		t.Fatalf("content type = %q", ct)
	}
	var got struct {
		Embeds []struct {
			Title     string  `json:"title"`
			Color     int     `json:"color"`
			Fields    []Field `json:"fields"`
			Footer    Footer  `json:"footer"`
			Timestamp string  `json:"timestamp"`
		} `json:"embeds"`
	}
	if err := json.Unmarshal(body, &got); err != nil {
		t.Fatalf("decode body: %v", err)
	}
	if len(got.Embeds) != 1 {
		t.Fatalf("embeds = %d", len(got.Embeds))
	}
	e := got.Embeds[0]
	if e.Title != TitleSummary || e.Color != ColorSummary || e.Footer.Text != FooterText {
		t.Fatalf("embed = %+v", e)
	}
	if e.Timestamp != "2026-10-19T13:55:00Z" {
		t.Fatalf("timestamp = %q", e.Timestamp)
	}
	if strings.Contains(string(body), "run-1") {
		t.Fatal("run id leaked into webhook body")
	}
}

func TestWebhookSenderNon2xx(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "rate limited", http.StatusTooManyRequests)
	}))
	defer srv.Close()

	err := NewWebhookSender(srv.URL, time.Second, nil).Send(context.Background(), NoAuctionReport(testTime))
	if !errors.Is(err, failure.ErrDelivery) {
		t.Fatalf("err = %v, want delivery failure", err)
	}
	if !strings.Contains(err.Error(), "429") {
		t.Fatalf("err lacks status: %v", err)
	}
}

func TestWebhookSenderDisabled(t *testing.T) {
	s := NewWebhookSender("", 0, nil)
	if s != nil {
		t.Fatal("expected nil sender for empty url")
	}
	if err := s.Send(context.Background(), NoAuctionReport(testTime)); err != nil {
		t.Fatalf("nil sender Send: %v", err)
	}
	if err := s.Validate(); err == nil {
		t.Fatal("nil sender should not validate")
	}
}

func TestErrorReportClipsDescription(t *testing.T) {
	msg := ErrorReport(strings.Repeat("x", 5000), testTime)
	d := msg.Embeds[0].Description
	if len([]rune(d)) != maxDescription || !strings.HasSuffix(d, "...") {
		t.Fatalf("description length = %d", len([]rune(d)))
	}
	if msg.Embeds[0].Color != ColorError || msg.Embeds[0].Title != TitleError {
		t.Fatalf("embed = %+v", msg.Embeds[0])
	}
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	f.msgs = append(f.msgs, msgs...)
	return f.err
}

func (f *fakeWriter) Close() error { return nil }

func TestKafkaSinkEnvelope(t *testing.T) {
	w := &fakeWriter{}
	k := &KafkaSink{writer: w, topic: "dark-auction-events"}

	if err := k.Send(context.Background(), SummaryReport("run-42", nil, testTime)); err != nil {
		t.Fatalf("Send: %v", err)
	}
	if len(w.msgs) != 1 || string(w.msgs[0].Key) != "run-42" {
		t.Fatalf("written = %+v", w.msgs)
	}
	var env struct {
		Kind    string    `json:"kind"`
		RunID   string    `json:"run_id"`
		SentAt  time.Time `json:"sent_at"`
		Payload Message   `json:"payload"`
	}
	if err := json.Unmarshal(w.msgs[0].Value, &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Kind != KindSummary || env.RunID != "run-42" || len(env.Payload.Embeds) != 1 {
		t.Fatalf("envelope = %+v", env)
	}
	if !env.SentAt.Equal(testTime) {
		t.Fatalf("sent_at = %v, want message time %v", env.SentAt, testTime)
	}

	w.err = errors.New("broker down")
	if err := k.Send(context.Background(), NoAuctionReport(testTime)); !errors.Is(err, failure.ErrDelivery) {
		t.Fatalf("err = %v, want delivery failure", err)
	}
	if string(w.msgs[1].Key) != KindNoAuction {
		t.Fatalf("key = %q, want kind fallback", w.msgs[1].Key)
	}
}

func TestKafkaSinkStampsUntimedMessages(t *testing.T) {
	w := &fakeWriter{}
	k := &KafkaSink{writer: w, topic: "t", now: clock.NewFake(testTime).Now}

	if err := k.Send(context.Background(), Message{Kind: KindTest}); err != nil {
		t.Fatalf("Send: %v", err)
	}
	var env struct {
		SentAt time.Time `json:"sent_at"`
	}
	if err := json.Unmarshal(w.msgs[0].Value, &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !env.SentAt.Equal(testTime) {
		t.Fatalf("sent_at = %v, want sink clock %v", env.SentAt, testTime)
	}
}

func TestKafkaSinkDisabled(t *testing.T) {
	if NewKafkaSink(nil, "t", nil, nil) != nil {
		t.Fatal("expected nil sink without brokers")
	}
}

func TestMultiJoinsErrors(t *testing.T) {
	ok := &captureSink{name: "ok"}
	bad := &captureSink{name: "bad", err: failure.Delivery("nope")}
	var nilSender *WebhookSender

	err := Multi{ok, nil, nilSender, bad}.Send(context.Background(), NoAuctionReport(testTime))
	if !errors.Is(err, failure.ErrDelivery) || !strings.Contains(err.Error(), "bad:") {
		t.Fatalf("err = %v", err)
	}
	if len(ok.msgs) != 1 || len(bad.msgs) != 1 {
		t.Fatalf("deliveries ok=%d bad=%d", len(ok.msgs), len(bad.msgs))
	}
}

func TestNotifierReportErrorSwallowsDeliveryFailure(t *testing.T) {
	sink := &captureSink{name: "c", err: failure.Delivery("webhook down")}
	var hooked []string
	n := NewNotifier(sink, nil,
		WithClock(clock.NewFake(testTime)),
		WithErrorHook(func(stage string, err error) { hooked = append(hooked, stage) }),
	)

	n.ReportError(context.Background(), "monitor", failure.Network("counts returned 503"))

	if len(sink.msgs) != 1 {
		t.Fatalf("sent %d messages, want exactly 1 (no recursive report)", len(sink.msgs))
	}
	e := sink.msgs[0].Embeds[0]
	if e.Title != TitleError || !strings.Contains(e.Description, "Error in monitor") {
		t.Fatalf("embed = %+v", e)
	}
	if e.Timestamp != "2026-10-19T13:55:00Z" {
		t.Fatalf("timestamp = %q", e.Timestamp)
	}
	if len(hooked) != 1 || hooked[0] != "monitor" {
		t.Fatalf("hook calls = %v", hooked)
	}
}

func TestNotifierIgnoresCancellation(t *testing.T) {
	sink := &captureSink{name: "c"}
	n := NewNotifier(sink, nil)
	n.ReportError(context.Background(), "wait", context.Canceled)
	n.ReportError(context.Background(), "wait", nil)
	if len(sink.msgs) != 0 {
		t.Fatalf("sent %d messages for cancellation", len(sink.msgs))
	}
}

func TestNotifierNoAuction(t *testing.T) {
	sink := &captureSink{name: "c"}
	NewNotifier(sink, nil, WithClock(clock.NewFake(testTime))).NoAuction(context.Background())
	if len(sink.msgs) != 1 || sink.msgs[0].Embeds[0].Description != NoAuctionText {
		t.Fatalf("msgs = %+v", sink.msgs)
	}
}

func TestTestReport(t *testing.T) {
	msg := TestReport(testTime)
	e := msg.Embeds[0]
	if msg.Kind != KindTest || e.Title != TitleNotice || e.Description != TestText || e.Footer == nil {
		t.Fatalf("message = %+v", msg)
	}
}
