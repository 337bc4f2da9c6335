package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/yungbote/finsights-backend/internal/data/memstore"
	"github.com/yungbote/finsights-backend/internal/data/storetest"
	types "github.com/yungbote/finsights-backend/internal/domain/documents"
	"github.com/yungbote/finsights-backend/internal/observability"
	"github.com/yungbote/finsights-backend/internal/realtime/bus"
)

type recordingBus struct {
	mu     sync.Mutex
	events []bus.StatusEvent
	err    error
}

func (b *recordingBus) Publish(_ context.Context, ev bus.StatusEvent) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.err != nil {
		return b.err
	}
	b.events = append(b.events, ev)
	return nil
}

func (b *recordingBus) StartForwarder(context.Context, func(bus.StatusEvent)) error { return nil }

func (b *recordingBus) Close() error { return nil }

func newDocumentService(t *testing.T, pageSize int) (DocumentService, *recordingBus, *observability.Metrics) {
	t.Helper()
	_, clock := storetest.NewFixedClock()
	events := &recordingBus{}
	metrics := observability.NewMetrics()
	svc := NewDocumentService(DocumentServiceDeps{
		Store:    memstore.New(clock),
		Events:   events,
		Metrics:  metrics,
		PageSize: pageSize,
	})
	return svc, events, metrics
}

func TestDocumentServiceTransitionPublishesEvent(t *testing.T) {
	svc, events, metrics := newDocumentService(t, 0)
	ctx := context.Background()

	doc, err := svc.Create(ctx, storetest.Input(1))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Transition(ctx, doc.TranscriptUUID, types.StatusDownloaded, storetest.Downloaded()); err != nil {
		t.Fatalf("transition: %v", err)
	}
	if _, err := svc.Transition(ctx, doc.TranscriptUUID, types.StatusParsed, storetest.Downloaded()); err == nil {
		t.Fatalf("expected rejected transition")
	}

	if len(events.events) != 1 {
		t.Fatalf("events: want=1 got=%d", len(events.events))
	}
	ev := events.events[0]
	if ev.TranscriptUUID != doc.TranscriptUUID || ev.From != types.StatusDiscovered || ev.To != types.StatusDownloaded || ev.Kind != types.KindAdvance {
		t.Fatalf("unexpected event: %+v", ev)
	}
	if got := metrics.TransitionCount("discovered", "downloaded", "advance"); got != 1 {
		t.Fatalf("transition metric: want=1 got=%v", got)
	}
}

func TestDocumentServicePublishFailureKeepsTransition(t *testing.T) {
	svc, events, _ := newDocumentService(t, 0)
	events.err = errors.New("redis down")
	ctx := context.Background()

	doc, err := svc.Create(ctx, storetest.Input(1))
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if _, err := svc.Transition(ctx, doc.TranscriptUUID, types.StatusFailed, storetest.Failed("timeout")); err != nil {
		t.Fatalf("transition: %v", err)
	}
	got, err := svc.Get(ctx, doc.TranscriptUUID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ProcessingStatus != types.StatusFailed {
		t.Fatalf("status: want=failed got=%s", got.ProcessingStatus)
	}
}

func TestDocumentServiceListByStatusIsLazyAndRestartable(t *testing.T) {
	svc, _, _ := newDocumentService(t, 2)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := svc.Create(ctx, storetest.Input(i)); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}

	var first []string
	for doc, err := range svc.ListByStatus(ctx, types.StatusDiscovered) {
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		first = append(first, doc.TranscriptUUID)
	}
	if len(first) != 5 {
		t.Fatalf("first pass: want=5 got=%d (%v)", len(first), first)
	}
	if first[0] != "doc-004" || first[4] != "doc-000" {
		t.Fatalf("order: %v", first)
	}

	if _, err := svc.Transition(ctx, "doc-002", types.StatusDownloaded, storetest.Downloaded()); err != nil {
		t.Fatalf("transition: %v", err)
	}
	var second []string
	for doc, err := range svc.ListByStatus(ctx, types.StatusDiscovered) {
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		second = append(second, doc.TranscriptUUID)
	}
	if len(second) != 4 {
		t.Fatalf("second pass should reflect the transition: %v", second)
	}

	taken := 0
	for range svc.ListByStatus(ctx, types.StatusDiscovered) {
		taken++
		if taken == 1 {
			break
		}
	}
	if taken != 1 {
		t.Fatalf("early break: taken=%d", taken)
	}
}

func TestDocumentServiceListByStatusInvalid(t *testing.T) {
	svc, _, _ := newDocumentService(t, 0)
	n := 0
	for doc, err := range svc.ListByStatus(context.Background(), types.ProcessingStatus("done")) {
		n++
		if doc != nil || !types.IsCode(err, types.CodeInvalidStatus) {
			t.Fatalf("want invalid_status, got doc=%v err=%v", doc, err)
		}
	}
	if n != 1 {
		t.Fatalf("yields: want=1 got=%d", n)
	}
}

func TestDocumentServiceListPageCursor(t *testing.T) {
	svc, _, _ := newDocumentService(t, 0)
	ctx := context.Background()
	for i := 0; i < 3; i++ {
		if _, err := svc.Create(ctx, storetest.Input(i)); err != nil {
			t.Fatalf("create %d: %v", i, err)
		}
	}
	page, next, err := svc.ListPage(ctx, types.StatusDiscovered, nil, 2)
	if err != nil {
		t.Fatalf("page 1: %v", err)
	}
	if len(page) != 2 || next == nil {
		t.Fatalf("page 1: len=%d next=%v", len(page), next)
	}
	page, next, err = svc.ListPage(ctx, types.StatusDiscovered, next, 2)
	if err != nil {
		t.Fatalf("page 2: %v", err)
	}
	if len(page) != 1 || next != nil {
		t.Fatalf("page 2: len=%d next=%v", len(page), next)
	}

	limited, err := svc.ListByStatusLimit(ctx, types.StatusDiscovered, 1)
	if err != nil || len(limited) != 1 || limited[0].TranscriptUUID != "doc-002" {
		t.Fatalf("limit: docs=%v err=%v", limited, err)
	}
}

func TestDocumentServiceCreateIfAbsent(t *testing.T) {
	svc, _, _ := newDocumentService(t, 0)
	ctx := context.Background()
	if _, inserted, err := svc.CreateIfAbsent(ctx, storetest.Input(1)); err != nil || !inserted {
		t.Fatalf("first: inserted=%v err=%v", inserted, err)
	}
	doc, inserted, err := svc.CreateIfAbsent(ctx, storetest.Input(1))
	if err != nil || inserted {
		t.Fatalf("second: inserted=%v err=%v", inserted, err)
	}
	if doc.TranscriptUUID != storetest.Input(1).TranscriptUUID {
		t.Fatalf("existing: %+v", doc)
	}
	if _, err := svc.FindByHash(ctx, storetest.Input(1).PDFURLSHA256); err != nil {
		t.Fatalf("find by hash: %v", err)
	}
}
