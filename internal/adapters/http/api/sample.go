package api

import (
	"net/http"
	"time"

	"github.com/okian/balanceboard/internal/domain/cop"
	"github.com/okian/balanceboard/internal/domain/model"
)

// SampleResponse is the body of GET /api/sample.
type SampleResponse struct {
	Seq    uint64                 `json:"seq"`
	At     time.Time              `json:"at"`
	Sample model.RawSample        `json:"sample"`
	CoP    model.CenterOfPressure `json:"cop"`
	Total  int                    `json:"total"`
}

// CoPResponse is the body of GET /api/cop.
type CoPResponse struct {
	Seq   uint64    `json:"seq"`
	At    time.Time `json:"at"`
	X     int       `json:"x"`
	Y     int       `json:"y"`
	NX    float64   `json:"nx"`
	NY    float64   `json:"ny"`
	XMM   float64   `json:"x_mm"`
	YMM   float64   `json:"y_mm"`
	Total int       `json:"total"`
}

// NewCoPResponse builds the CoP body for snap.
func NewCoPResponse(snap model.Snapshot) CoPResponse {
	nx, ny := cop.Normalize(snap.CoP, snap.Sample)
	mx, my := cop.Millimetres(nx, ny)
	return CoPResponse{
		Seq:   snap.Seq,
		At:    snap.At,
		X:     snap.CoP.X,
		Y:     snap.CoP.Y,
		NX:    nx,
		NY:    ny,
		XMM:   mx,
		YMM:   my,
		Total: cop.Total(snap.Sample),
	}
}

// SampleHandler serves the latest reading.
type SampleHandler struct {
	src Source
}

// NewSampleHandler creates a new sample handler.
func NewSampleHandler(src Source) *SampleHandler {
	return &SampleHandler{src: src}
}

// HandleSample handles GET /api/sample requests.
func (h *SampleHandler) HandleSample(w http.ResponseWriter, r *http.Request) {
	snap, err := h.latest(r, "sample")
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, SampleResponse{
		Seq:    snap.Seq,
		At:     snap.At,
		Sample: snap.Sample,
		CoP:    snap.CoP,
		Total:  cop.Total(snap.Sample),
	})
}

// HandleCoP handles GET /api/cop requests.
func (h *SampleHandler) HandleCoP(w http.ResponseWriter, r *http.Request) {
	snap, err := h.latest(r, "cop")
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, NewCoPResponse(snap))
}

func (h *SampleHandler) latest(r *http.Request, op string) (model.Snapshot, error) {
	if r.Method != http.MethodGet {
		return model.Snapshot{}, NewKind(op, ErrMethodNotAllowed)
	}
	snap, ok := h.src.Snapshot()
	if !ok {
		return model.Snapshot{}, NewKind(op, ErrNoSample)
	}
	return snap, nil
}
