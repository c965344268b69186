package models

// ModelInfo is one entry of the trending list.
type ModelInfo struct {
	ID            string
	Name          string
	Description   string
	Author        string
	DownloadCount int
	LikeCount     int
	Price         float64
	IsFree        bool
	ThumbnailURL  string
	CreatedAt     string
}

// Model3MFInfo describes one downloadable container of an item.
type Model3MFInfo struct {
	ID             string
	Name           string
	SecondName     string
	Size           int64
	Thumbnail      string
	LayerHeight    string
	InfillDensity  string
	WallLoops      string
	PrinterName    string
	PrintTime      int64
	FilamentLength float64
	FilamentWeight float64
	DownloadCount  int
}

// RegistrationRecord is the platform's acknowledgement of a registered
// variant.
type RegistrationRecord struct {
	ID             string
	ModelGroupID   string
	ModelGroupName string
	Size           int64
	FileKey        string
	Name           string
	PrinterName    string
	Thumbnail      string
	IsCanPrint     bool
	IsAuth         bool
	UserID         string
}
