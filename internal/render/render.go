// Package render rasterizes board positions into PNG diagrams using an
// embedded SVG piece set.
package render

import (
	"bytes"
	"embed"
	"image"
	"image/color"
	"image/draw"
	"image/png"

	"github.com/pkg/errors"
	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/jamesninnes/chess-on-chain/internal/board"
)

//go:embed assets/pieces/*.svg
var pieceAssets embed.FS

const (
	// SquareSize is the edge length of one board square in pixels.
	SquareSize = 64

	// margin is the gutter around the grid that holds the coordinate labels.
	margin = 24
)

// ImageSize is the edge length of a rendered diagram in pixels.
const ImageSize = 2*margin + 8*SquareSize

var (
	lightSquare = color.RGBA{R: 0xF0, G: 0xD9, B: 0xB5, A: 0xFF}
	darkSquare  = color.RGBA{R: 0xB5, G: 0x88, B: 0x63, A: 0xFF}
	background  = color.RGBA{R: 0x2B, G: 0x27, B: 0x22, A: 0xFF}
	labelColor  = color.RGBA{R: 0xD4, G: 0xCF, B: 0xC7, A: 0xFF}
)

// pieceFiles maps pieces to their asset file paths.
var pieceFiles = map[board.Piece]string{
	board.NewPiece(board.Pawn, board.White):   "assets/pieces/wP.svg",
	board.NewPiece(board.Knight, board.White): "assets/pieces/wN.svg",
	board.NewPiece(board.Bishop, board.White): "assets/pieces/wB.svg",
	board.NewPiece(board.Rook, board.White):   "assets/pieces/wR.svg",
	board.NewPiece(board.Queen, board.White):  "assets/pieces/wQ.svg",
	board.NewPiece(board.King, board.White):   "assets/pieces/wK.svg",
	board.NewPiece(board.Pawn, board.Black):   "assets/pieces/bP.svg",
	board.NewPiece(board.Knight, board.Black): "assets/pieces/bN.svg",
	board.NewPiece(board.Bishop, board.Black): "assets/pieces/bB.svg",
	board.NewPiece(board.Rook, board.Black):   "assets/pieces/bR.svg",
	board.NewPiece(board.Queen, board.Black):  "assets/pieces/bQ.svg",
	board.NewPiece(board.King, board.Black):   "assets/pieces/bK.svg",
}

// Renderer draws board diagrams from a set of rasterized piece sprites.
// It is safe for concurrent use once constructed.
type Renderer struct {
	sprites map[board.Piece]*image.RGBA
}

// NewRenderer parses the embedded SVG piece set and rasterizes each piece
// at SquareSize resolution.
func NewRenderer() (*Renderer, error) {
	r := &Renderer{sprites: make(map[board.Piece]*image.RGBA, len(pieceFiles))}
	for piece, path := range pieceFiles {
		data, err := pieceAssets.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read piece asset %s", path)
		}

		icon, err := oksvg.ReadIconStream(bytes.NewReader(data))
		if err != nil {
			return nil, errors.Wrapf(err, "parse piece asset %s", path)
		}
		icon.SetTarget(0, 0, float64(SquareSize), float64(SquareSize))

		rgba := image.NewRGBA(image.Rect(0, 0, SquareSize, SquareSize))
		scanner := rasterx.NewScannerGV(SquareSize, SquareSize, rgba, rgba.Bounds())
		raster := rasterx.NewDasher(SquareSize, SquareSize, scanner)
		icon.Draw(raster, 1.0)

		r.sprites[piece] = rgba
	}
	return r, nil
}

// Image draws the position with rank 8 at the top, White's side at the
// bottom, and file and rank labels in the margins.
func (r *Renderer) Image(b *board.Board) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, ImageSize, ImageSize))
	draw.Draw(img, img.Bounds(), image.NewUniform(background), image.Point{}, draw.Src)

	for rank := 0; rank < 8; rank++ {
		for file := 0; file < 8; file++ {
			x0 := margin + file*SquareSize
			y0 := margin + (7-rank)*SquareSize
			cell := image.Rect(x0, y0, x0+SquareSize, y0+SquareSize)

			fill := lightSquare
			if (file+rank)%2 == 0 {
				fill = darkSquare
			}
			draw.Draw(img, cell, image.NewUniform(fill), image.Point{}, draw.Src)

			piece := b.PieceAt(board.NewSquare(file, rank))
			if piece == board.NoPiece {
				continue
			}
			if sprite := r.sprites[piece]; sprite != nil {
				draw.Draw(img, cell, sprite, image.Point{}, draw.Over)
			}
		}
	}

	r.drawLabels(img)
	return img
}

// PNG encodes the position as a PNG diagram.
func (r *Renderer) PNG(b *board.Board) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, r.Image(b)); err != nil {
		return nil, errors.Wrap(err, "encode board png")
	}
	return buf.Bytes(), nil
}

func (r *Renderer) drawLabels(img *image.RGBA) {
	d := font.Drawer{
		Dst:  img,
		Src:  image.NewUniform(labelColor),
		Face: basicfont.Face7x13,
	}

	for file := 0; file < 8; file++ {
		label := string(rune('a' + file))
		x := margin + file*SquareSize + SquareSize/2 - d.MeasureString(label).Ceil()/2
		d.Dot = fixed.P(x, margin+8*SquareSize+16)
		d.DrawString(label)
	}

	for rank := 0; rank < 8; rank++ {
		label := string(rune('1' + rank))
		y := margin + (7-rank)*SquareSize + SquareSize/2 + 4
		d.Dot = fixed.P(margin-16, y)
		d.DrawString(label)
	}
}
