package driven

import "context"

// RegionKind selects what the detector should look for on a page.
type RegionKind string

const (
	RegionDate      RegionKind = "date"
	RegionSeal      RegionKind = "seal"
	RegionSignature RegionKind = "signature"
)

// Region is one candidate area found on a page. The bounding box is
// optional: some vision backends only return labels.
type Region struct {
	// Label describes the detection (e.g. "signing date", "company seal").
	Label string

	// Text is the content read from the region, when the backend
	// returns it alongside the detection.
	Text string

	// BBox is [x, y, width, height] in page pixels, nil when the
	// backend does not localise.
	BBox []float64
}

// Detection is the per-page result of a detector call. An empty Regions
// slice is a valid, meaningful result: the page has no such region.
type Detection struct {
	Page       int
	Regions    []Region
	Confidence float64
}

// RegionDetector finds candidate regions of one kind on document pages.
//
// Implementations are external vision services; absence of regions is
// never an error.
type RegionDetector interface {
	// Detect analyses one file and returns one Detection per page.
	Detect(ctx context.Context, filePath string, kind RegionKind) ([]Detection, error)

	// Name identifies the backend for attempt histories.
	Name() string
}
