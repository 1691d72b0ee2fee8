package render

import (
	"bytes"
	"embed"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"sync"

	nchess "github.com/corentings/chess/v2"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

//go:embed assets/pieces/*.svg
var pieceFiles embed.FS

var pieceLetters = map[nchess.PieceType]string{
	nchess.King:   "K",
	nchess.Queen:  "Q",
	nchess.Rook:   "R",
	nchess.Bishop: "B",
	nchess.Knight: "N",
	nchess.Pawn:   "P",
}

type spriteKey struct {
	name string
	size int
}

var (
	spriteMu    sync.Mutex
	spriteCache = map[spriteKey]image.Image{}
)

// renderPieceImage rasterizes the embedded sprite for piece at size pixels.
// Sprites are cached per asset and size; a full board render touches at most
// twelve distinct sprites.
func renderPieceImage(piece nchess.Piece, size int) (image.Image, error) {
	key := spriteKey{name: pieceAssetName(piece), size: size}

	spriteMu.Lock()
	defer spriteMu.Unlock()
	if img, ok := spriteCache[key]; ok {
		return img, nil
	}

	img, err := rasterizeSprite(key.name, size)
	if err != nil {
		return nil, err
	}
	spriteCache[key] = img
	return img, nil
}

func rasterizeSprite(name string, size int) (image.Image, error) {
	data, err := pieceFiles.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("read piece asset %s: %w", name, err)
	}
	// oksvg rejects style values with a space after the colon
	data = bytes.ReplaceAll(data, []byte("fill: #"), []byte("fill:#"))
	data = bytes.ReplaceAll(data, []byte("stroke: #"), []byte("stroke:#"))

	icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("parse piece svg %s: %w", name, err)
	}
	if icon.ViewBox.W <= 0 || icon.ViewBox.H <= 0 {
		icon.ViewBox.W = float64(size)
		icon.ViewBox.H = float64(size)
	}
	icon.SetTarget(0, 0, float64(size), float64(size))

	img := image.NewRGBA(image.Rect(0, 0, size, size))
	draw.Draw(img, img.Bounds(), image.NewUniform(color.Transparent), image.Point{}, draw.Src)
	scanner := rasterx.NewScannerGV(size, size, img, img.Bounds())
	icon.Draw(rasterx.NewDasher(size, size, scanner), 1.0)
	return img, nil
}

func pieceAssetName(piece nchess.Piece) string {
	side := "b"
	if piece.Color() == nchess.White {
		side = "w"
	}
	return fmt.Sprintf("assets/pieces/%s%s.svg", side, pieceLetters[piece.Type()])
}
