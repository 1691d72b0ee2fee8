package render

import (
	"bytes"
	"context"
	"image/png"
	"testing"

	nchess "github.com/corentings/chess/v2"
)

const startFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

func TestRenderPNGStartPosition(t *testing.T) {
	r := NewBoardRenderer()
	data, err := r.RenderPNG(context.Background(), startFEN, Options{})
	if err != nil {
		t.Fatalf("RenderPNG: %v", err)
	}
	img, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		t.Fatalf("output is not a png: %v", err)
	}
	b := img.Bounds()
	if b.Dx() != b.Dy() || b.Dx() < 72*8 {
		t.Fatalf("unexpected dimensions: %v", b)
	}
}

func TestRenderPNGBadFEN(t *testing.T) {
	r := NewBoardRenderer()
	if _, err := r.RenderPNG(context.Background(), "not a position", Options{}); err == nil {
		t.Fatalf("expected error for malformed fen")
	}
}

func TestHighlightFromUCI(t *testing.T) {
	hl := HighlightFromUCI([]string{"e2e4", "e7e5"})
	if hl == nil {
		t.Fatalf("expected highlight")
	}
	if hl.From != nchess.E7 || hl.To != nchess.E5 {
		t.Fatalf("wrong squares: %v -> %v", hl.From, hl.To)
	}
	if HighlightFromUCI(nil) != nil {
		t.Fatalf("empty log must yield no highlight")
	}
	if HighlightFromUCI([]string{"zz9z"}) != nil {
		t.Fatalf("undecodable log must yield no highlight")
	}
}

func TestPieceAssetsComplete(t *testing.T) {
	for _, piece := range []nchess.Piece{
		nchess.WhiteKing, nchess.WhiteQueen, nchess.WhiteRook, nchess.WhiteBishop, nchess.WhiteKnight, nchess.WhitePawn,
		nchess.BlackKing, nchess.BlackQueen, nchess.BlackRook, nchess.BlackBishop, nchess.BlackKnight, nchess.BlackPawn,
	} {
		if _, err := renderPieceImage(piece, 72); err != nil {
			t.Fatalf("piece %v: %v", piece, err)
		}
	}
}
