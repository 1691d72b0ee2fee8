package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"
	"strings"

	nchess "github.com/corentings/chess/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

// MoveHighlight marks the origin and destination of the last move.
type MoveHighlight struct {
	From nchess.Square
	To   nchess.Square
}

type Options struct {
	Highlight *MoveHighlight
}

type BoardRenderer interface {
	RenderPNG(ctx context.Context, fen string, opts Options) ([]byte, error)
}

type svgBoardRenderer struct{}

func NewBoardRenderer() BoardRenderer {
	return &svgBoardRenderer{}
}

var (
	lightSquare         = color.RGBA{233, 207, 163, 255}
	darkSquare          = color.RGBA{187, 136, 96, 255}
	highlightFill       = color.NRGBA{R: 246, G: 224, B: 92, A: 120}
	coordinateTextColor = color.RGBA{60, 44, 30, 255}
)

// HighlightFromUCI derives the highlight squares from the last move in a
// UCI log. The move is decoded against the position before it was played.
func HighlightFromUCI(movesUCI []string) *MoveHighlight {
	if len(movesUCI) == 0 {
		return nil
	}
	game := nchess.NewGame()
	for _, mv := range movesUCI[:len(movesUCI)-1] {
		if err := game.PushNotationMove(mv, nchess.UCINotation{}, nil); err != nil {
			return nil
		}
	}
	last := strings.ToLower(strings.TrimSpace(movesUCI[len(movesUCI)-1]))
	mv, err := (nchess.UCINotation{}).Decode(game.Position(), last)
	if err != nil {
		return nil
	}
	return &MoveHighlight{From: mv.S1(), To: mv.S2()}
}

func (r *svgBoardRenderer) RenderPNG(ctx context.Context, fen string, opts Options) ([]byte, error) {
	board, err := boardFromFEN(fen)
	if err != nil {
		return nil, err
	}

	const (
		squareSize   = 72
		boardSquares = 8
		boardSize    = squareSize * boardSquares
		margin       = 28
	)

	totalSize := boardSize + margin*2
	boardOrigin := image.Point{X: margin, Y: margin}

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	img := image.NewRGBA(image.Rect(0, 0, totalSize, totalSize))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(color.RGBA{244, 238, 228, 255}), image.Point{}, imagedraw.Src)

	drawSquares(img, squareSize, boardOrigin)
	drawHighlight(img, opts.Highlight, squareSize, boardOrigin)
	if err := drawPieces(img, board, squareSize, boardOrigin); err != nil {
		return nil, err
	}
	drawCoordinates(img, squareSize, boardOrigin, margin)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func boardFromFEN(fen string) (*nchess.Board, error) {
	option, err := nchess.FEN(strings.TrimSpace(fen))
	if err != nil {
		return nil, fmt.Errorf("parse fen %q: %w", fen, err)
	}
	game := nchess.NewGame(option)
	return game.Position().Board(), nil
}

var (
	boardRanks = []nchess.Rank{nchess.Rank8, nchess.Rank7, nchess.Rank6, nchess.Rank5, nchess.Rank4, nchess.Rank3, nchess.Rank2, nchess.Rank1}
	boardFiles = []nchess.File{nchess.FileA, nchess.FileB, nchess.FileC, nchess.FileD, nchess.FileE, nchess.FileF, nchess.FileG, nchess.FileH}
)

func drawSquares(dst imagedraw.Image, squareSize int, origin image.Point) {
	for row, rank := range boardRanks {
		for col, file := range boardFiles {
			x := origin.X + col*squareSize
			y := origin.Y + row*squareSize
			sq := nchess.NewSquare(file, rank)
			imagedraw.Draw(dst, image.Rect(x, y, x+squareSize, y+squareSize), image.NewUniform(squareColor(sq)), image.Point{}, imagedraw.Src)
		}
	}
}

func drawHighlight(dst *image.RGBA, highlight *MoveHighlight, squareSize int, origin image.Point) {
	if highlight == nil {
		return
	}
	for _, sq := range []nchess.Square{highlight.From, highlight.To} {
		rect := squareRect(sq, squareSize, origin)
		imagedraw.Draw(dst, rect, image.NewUniform(highlightFill), image.Point{}, imagedraw.Over)
	}
}

func drawPieces(dst imagedraw.Image, board *nchess.Board, squareSize int, origin image.Point) error {
	boardMap := board.SquareMap()
	for row, rank := range boardRanks {
		for col, file := range boardFiles {
			sq := nchess.NewSquare(file, rank)
			piece := boardMap[sq]
			if piece == nchess.NoPiece {
				continue
			}
			img, err := renderPieceImage(piece, squareSize)
			if err != nil {
				return err
			}
			x := origin.X + col*squareSize
			y := origin.Y + row*squareSize
			imagedraw.Draw(dst, image.Rect(x, y, x+squareSize, y+squareSize), img, image.Point{}, imagedraw.Over)
		}
	}
	return nil
}

func drawCoordinates(dst imagedraw.Image, squareSize int, origin image.Point, margin int) {
	face := basicfont.Face7x13
	drawer := &font.Drawer{
		Dst:  dst,
		Face: face,
		Src:  image.NewUniform(coordinateTextColor),
	}

	ascent := face.Metrics().Ascent.Ceil()
	boardEndY := origin.Y + len(boardRanks)*squareSize

	for row, rank := range boardRanks {
		baseline := origin.Y + row*squareSize + squareSize/2 + ascent/2
		drawCenteredText(drawer, rank.String(), origin.X-margin/2, baseline)
	}
	for col, file := range boardFiles {
		center := origin.X + col*squareSize + squareSize/2
		drawCenteredText(drawer, file.String(), center, boardEndY+margin/2+ascent/2)
	}
}

func drawCenteredText(drawer *font.Drawer, text string, centerX, baseline int) {
	width := drawer.MeasureString(text).Ceil()
	drawer.Dot = fixed.P(centerX-width/2, baseline)
	drawer.DrawString(text)
}

func squareRect(sq nchess.Square, squareSize int, origin image.Point) image.Rectangle {
	col := int(sq.File())
	row := 7 - int(sq.Rank())
	x := origin.X + col*squareSize
	y := origin.Y + row*squareSize
	return image.Rect(x, y, x+squareSize, y+squareSize)
}

func squareColor(sq nchess.Square) color.Color {
	if (int(sq.File())+int(sq.Rank()))%2 == 0 {
		return darkSquare
	}
	return lightSquare
}
