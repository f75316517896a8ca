package types

// ScanPhase is the coarse stage of a scan reported to observers
type ScanPhase string

const (
	PhaseCounting ScanPhase = "counting"
	PhaseScanning ScanPhase = "scanning"
	PhaseComplete ScanPhase = "complete"
)

// ScanProgress represents scan progress sent to the host on the scan-progress channel
type ScanProgress struct {
	RunID       string    `json:"runId"`
	Phase       ScanPhase `json:"phase"`
	Total       int       `json:"total"`
	Processed   int       `json:"processed"`
	CurrentFile string    `json:"currentFile"`
}

// DiscoveredFile is one audio file found during a scan.
// Data holds at most the first library.PrefixLimit bytes of the file.
type DiscoveredFile struct {
	Name string `json:"name"`
	Path string `json:"path"`
	Data []byte `json:"data"`
}
