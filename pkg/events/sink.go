package events

import "github.com/sandboxkit/desktopd/pkg/importer"

// ImportProgressSink adapts a Broker to importer.ProgressSink, publishing
// every ImportProgress as an EventFolderImportProgress event — this is
// the in-process side of the host UI's single named event channel (§6).
type ImportProgressSink struct {
	broker *Broker
}

// NewImportProgressSink wraps broker as an importer.ProgressSink.
func NewImportProgressSink(broker *Broker) *ImportProgressSink {
	return &ImportProgressSink{broker: broker}
}

func (s *ImportProgressSink) Publish(p importer.ImportProgress) {
	s.broker.Publish(&Event{
		Type:    EventFolderImportProgress,
		Payload: p,
	})
}

var _ importer.ProgressSink = (*ImportProgressSink)(nil)
