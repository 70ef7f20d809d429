package importer

// Phase is the stage of an import an ImportProgress event belongs to.
type Phase string

const (
	PhaseScanning Phase = "scanning"
	PhaseCopying  Phase = "copying"
	PhaseDone     Phase = "done"
	PhaseError    Phase = "error"
)

// ImportProgress is a single progress event emitted to an external sink.
// It is non-persistent: nothing in this package stores a history of
// emitted events beyond what the sink itself chooses to retain.
type ImportProgress struct {
	ImportID    string `json:"import_id"`
	Processed   int    `json:"processed"`
	Total       int    `json:"total"`
	CurrentFile string `json:"current_file"`
	Phase       Phase  `json:"phase"`
}

// ImportResult is the terminal outcome of one import call.
type ImportResult struct {
	ImportID    string   `json:"import_id"`
	FilesCopied int      `json:"files_copied"`
	BytesCopied int64    `json:"bytes_copied"`
	DestPath    string   `json:"dest_path"`
	Errors      []string `json:"errors"`
}

// ProgressSink receives ImportProgress events as an import runs. The host
// UI's event-emission transport (out of scope for this package, per
// SPEC_FULL.md §1) implements this to bridge into its own channel.
type ProgressSink interface {
	Publish(ImportProgress)
}

// ProgressSinkFunc adapts a plain function to ProgressSink.
type ProgressSinkFunc func(ImportProgress)

func (f ProgressSinkFunc) Publish(p ImportProgress) { f(p) }

// NopSink discards every event.
var NopSink ProgressSink = ProgressSinkFunc(func(ImportProgress) {})
