package catalog

import (
	"context"

	"github.com/dmitrijs2005/profilebot/internal/bot/models"
)

// Fixed print settings sent with every registered variant.
const (
	LayerHeight   = "0.2"
	InfillDensity = "15%"
	Nozzle        = "0.4"
	BedType       = "High Temp Plate"
	WallLoops     = "2"
	SecondName    = "0.2mm layer, 2 walls, 15% infill"

	CoverSide = 400
	coverType = 2
)

// Plate is one build plate of a registered variant.
type Plate struct {
	Name      string `json:"name"`
	Index     int    `json:"index"`
	Thumbnail string `json:"thumbnail"`
	HasGcode  bool   `json:"hasGcode"`
}

// Cover is an uploaded cover image.
type Cover struct {
	Type   int    `json:"type"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
	URL    string `json:"url"`
}

// RegisterRequest is the upload3mf payload.
type RegisterRequest struct {
	FileKey             string   `json:"filekey"`
	Size                int64    `json:"size"`
	Name                string   `json:"name"`
	Thumbnail           string   `json:"thumbnail"`
	PrinterName         string   `json:"printerName"`
	LayerHeight         string   `json:"layerHeight"`
	SparseInfillDensity string   `json:"sparseInfillDensity"`
	NozzleDiameter      []string `json:"nozzleDiameter"`
	CurrBedType         string   `json:"currBedType"`
	PlateList           []Plate  `json:"plateList"`
	SecondName          string   `json:"secondName"`
	WallLoops           string   `json:"wallLoops"`
	ModelGroupID        string   `json:"modelGroupId"`
	Covers              []Cover  `json:"covers"`
	Desc                string   `json:"desc"`
}

// NewRegisterRequest fills the fixed settings around one uploaded
// container. coverURL may be empty.
func NewRegisterRequest(fileKey string, size int64, name, printerName, groupID, coverURL string) RegisterRequest {
	covers := []Cover{}
	if coverURL != "" {
		covers = append(covers, Cover{Type: coverType, Width: CoverSide, Height: CoverSide, URL: coverURL})
	}
	return RegisterRequest{
		FileKey:             fileKey,
		Size:                size,
		Name:                name,
		Thumbnail:           coverURL,
		PrinterName:         printerName,
		LayerHeight:         LayerHeight,
		SparseInfillDensity: InfillDensity,
		NozzleDiameter:      []string{Nozzle},
		CurrBedType:         BedType,
		PlateList:           []Plate{{Name: "plate1", Index: 1, Thumbnail: coverURL}},
		SecondName:          SecondName,
		WallLoops:           WallLoops,
		ModelGroupID:        groupID,
		Covers:              covers,
	}
}

// Register3MF attaches an uploaded container to an item.
func (c *Client) Register3MF(ctx context.Context, r RegisterRequest) (*models.RegistrationRecord, error) {
	var res registerResult
	if err := c.post(ctx, "register container", pathUpload3MF, r, &res); err != nil {
		return nil, err
	}
	return &models.RegistrationRecord{
		ID:             string(res.ID),
		ModelGroupID:   string(res.ModelGroupID),
		ModelGroupName: res.ModelGroupName,
		Size:           int64(res.Size),
		FileKey:        res.FileKey,
		Name:           res.Name,
		PrinterName:    res.PrinterName,
		Thumbnail:      res.Thumbnail,
		IsCanPrint:     res.IsCanPrint,
		IsAuth:         res.IsAuth,
		UserID:         string(res.UserID),
	}, nil
}
