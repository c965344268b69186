package models

// Variant is one printer-specific container produced by the repackager.
type Variant struct {
	// Name is "<model>_<printerCode>".
	Name string
	// PrinterCode is the template directory name, or "original".
	PrinterCode string
	Path        string
	CoverPath   string
}

// Batch groups the variants derived from one source container. Dir is
// removed by the upload stage only when every variant succeeded.
type Batch struct {
	ModelName string
	Dir       string
	// ScratchDir holds the unpacked tree; it is removed together with Dir.
	ScratchDir string
	CoverPath  string
	Variants   []Variant
}

// Summary counts the outcome of an upload batch.
type Summary struct {
	Succeeded int
	Failed    int
	Cleaned   bool
}
