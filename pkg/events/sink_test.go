package events

import (
	"testing"
	"time"

	"github.com/sandboxkit/desktopd/pkg/importer"
)

func TestImportProgressSink_PublishesOntoBroker(t *testing.T) {
	b := NewBroker()
	b.Start()
	defer b.Stop()

	sub := b.Subscribe()
	defer b.Unsubscribe(sub)

	sink := NewImportProgressSink(b)
	sink.Publish(importer.ImportProgress{ImportID: "desktopd-1-1", Processed: 1, Total: 2, Phase: importer.PhaseCopying})

	select {
	case ev := <-sub:
		p, ok := ev.Payload.(importer.ImportProgress)
		if !ok {
			t.Fatalf("payload is %T, want importer.ImportProgress", ev.Payload)
		}
		if p.ImportID != "desktopd-1-1" || p.Processed != 1 {
			t.Fatalf("unexpected payload: %+v", p)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
	}
}
