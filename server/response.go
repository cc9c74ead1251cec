package server

import (
	"github.com/nvr-ai/go-alpr/plate"
)

// SymbolResponse is one glyph. Rect is ltrb_abs within the plate crop.
type SymbolResponse struct {
	ID    int        `json:"id"`
	Char  string     `json:"char"`
	Rect  [4]float64 `json:"rect"`
	Score float32    `json:"score"`
}

// PlateResponse is a plate read. Rect is ltrb_abs within the image.
type PlateResponse struct {
	Text    string           `json:"text"`
	Rect    [4]float64       `json:"rect"`
	Symbols []SymbolResponse `json:"symbols"`
}

// NewPlateResponse converts p, keeping nil as nil.
func NewPlateResponse(p *plate.Plate) *PlateResponse {
	if p == nil {
		return nil
	}
	out := &PlateResponse{
		Text:    p.String(),
		Rect:    p.Rect.Coordinates(),
		Symbols: make([]SymbolResponse, len(p.Symbols)),
	}
	for i, s := range p.Symbols {
		out.Symbols[i] = SymbolResponse{ID: s.ID, Char: s.String(), Rect: s.Rect.Coordinates(), Score: s.Score}
	}
	return out
}
