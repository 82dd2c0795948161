package render

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	imagedraw "image/draw"
	"image/png"

	"github.com/corentings/chess/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"
)

const (
	defaultSquareSize = 64
	boardSquares      = 8
)

var (
	lightSquare    = color.RGBA{233, 207, 163, 255}
	darkSquare     = color.RGBA{187, 136, 96, 255}
	highlightFill  = color.NRGBA{R: 255, G: 228, B: 120, A: 140}
	coordinateText = color.NRGBA{R: 40, G: 40, B: 40, A: 255}
)

// MoveHighlight marks the from/to squares of the last played move.
type MoveHighlight struct {
	From chess.Square
	To   chess.Square
}

type Options struct {
	Highlight *MoveHighlight
}

// Renderer rasterizes a position into a PNG: checkerboard, SVG piece
// glyphs, coordinate labels along the left and bottom edges.
type Renderer struct {
	squareSize int
}

func NewRenderer() *Renderer {
	return &Renderer{squareSize: defaultSquareSize}
}

func (r *Renderer) RenderPNG(ctx context.Context, board *chess.Board, opts Options) ([]byte, error) {
	if board == nil {
		return nil, fmt.Errorf("board is nil")
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	margin := r.squareSize / 3
	boardSize := r.squareSize * boardSquares
	origin := image.Point{X: margin, Y: margin / 2}

	img := image.NewRGBA(image.Rect(0, 0, boardSize+margin+margin/2, boardSize+margin+margin/2))
	imagedraw.Draw(img, img.Bounds(), image.NewUniform(color.White), image.Point{}, imagedraw.Src)

	r.drawSquares(img, origin)
	if opts.Highlight != nil {
		r.drawSquareOverlay(img, opts.Highlight.From, origin)
		r.drawSquareOverlay(img, opts.Highlight.To, origin)
	}
	if err := r.drawPieces(img, board, origin); err != nil {
		return nil, err
	}
	r.drawCoordinates(img, origin, margin)

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode png: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) drawSquares(dst *image.RGBA, origin image.Point) {
	for row := 0; row < boardSquares; row++ {
		for col := 0; col < boardSquares; col++ {
			x := origin.X + col*r.squareSize
			y := origin.Y + row*r.squareSize
			sq := squareAt(col, row)
			imagedraw.Draw(dst,
				image.Rect(x, y, x+r.squareSize, y+r.squareSize),
				image.NewUniform(squareColor(sq)), image.Point{}, imagedraw.Src)
		}
	}
}

func (r *Renderer) drawPieces(dst *image.RGBA, board *chess.Board, origin image.Point) error {
	boardMap := board.SquareMap()
	for row := 0; row < boardSquares; row++ {
		for col := 0; col < boardSquares; col++ {
			sq := squareAt(col, row)
			piece := boardMap[sq]
			if piece == chess.NoPiece {
				continue
			}
			glyph, err := renderPieceImage(piece, r.squareSize)
			if err != nil {
				return err
			}
			x := origin.X + col*r.squareSize
			y := origin.Y + row*r.squareSize
			imagedraw.Draw(dst,
				image.Rect(x, y, x+r.squareSize, y+r.squareSize),
				glyph, image.Point{}, imagedraw.Over)
		}
	}
	return nil
}

func (r *Renderer) drawSquareOverlay(dst *image.RGBA, sq chess.Square, origin image.Point) {
	rect := r.squareRect(sq, origin)
	imagedraw.Draw(dst, rect, image.NewUniform(highlightFill), image.Point{}, imagedraw.Over)
}

func (r *Renderer) drawCoordinates(dst *image.RGBA, origin image.Point, margin int) {
	drawer := &font.Drawer{
		Dst:  dst,
		Src:  image.NewUniform(coordinateText),
		Face: basicfont.Face7x13,
	}
	boardBottom := origin.Y + boardSquares*r.squareSize

	for row := 0; row < boardSquares; row++ {
		label := string(rune('8' - row))
		y := origin.Y + row*r.squareSize + r.squareSize/2 + basicfont.Face7x13.Ascent/2
		drawer.Dot = fixed.P(origin.X-margin*2/3, y)
		drawer.DrawString(label)
	}
	for col := 0; col < boardSquares; col++ {
		label := string(rune('a' + col))
		x := origin.X + col*r.squareSize + r.squareSize/2 - basicfont.Face7x13.Advance/2
		drawer.Dot = fixed.P(x, boardBottom+basicfont.Face7x13.Ascent+2)
		drawer.DrawString(label)
	}
}

func (r *Renderer) squareRect(sq chess.Square, origin image.Point) image.Rectangle {
	col := int(sq.File())
	row := 7 - int(sq.Rank())
	x := origin.X + col*r.squareSize
	y := origin.Y + row*r.squareSize
	return image.Rect(x, y, x+r.squareSize, y+r.squareSize)
}

// squareAt maps image grid coordinates (row 0 at the top, rank 8) to a
// board square.
func squareAt(col, row int) chess.Square {
	return chess.NewSquare(chess.File(col), chess.Rank(7-row))
}

func squareColor(sq chess.Square) color.Color {
	if (int(sq.File())+int(sq.Rank()))%2 == 0 {
		return darkSquare
	}
	return lightSquare
}
