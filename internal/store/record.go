package store

import (
	"encoding/binary"
	"math"

	"github.com/pkg/errors"

	"github.com/jamesninnes/chess-on-chain/internal/board"
	"github.com/jamesninnes/chess-on-chain/internal/game"
)

// Game records are stored in a fixed binary layout: a version byte, the id
// as a big-endian uint64, one byte each for turn and status, the four
// strings (white, black, winner, end reason) each prefixed with a big-endian
// uint16 length, and finally the 64 board bytes in square order. The board
// bytes use the packed piece encoding, so a record is readable by anything
// that understands that table. Strings that do not fit the 16-bit length
// prefix are refused at encode time.
const recordVersion = 1

func encodeGameRecord(g *game.Game) ([]byte, error) {
	for _, s := range []string{g.White, g.Black, g.Winner, string(g.Reason)} {
		if len(s) > math.MaxUint16 {
			return nil, errors.Errorf("record string too long: %d bytes", len(s))
		}
	}

	buf := make([]byte, 0, 128)
	buf = append(buf, recordVersion)
	buf = binary.BigEndian.AppendUint64(buf, g.ID)
	buf = append(buf, byte(g.Turn), byte(g.Status))
	buf = appendString(buf, g.White)
	buf = appendString(buf, g.Black)
	buf = appendString(buf, g.Winner)
	buf = appendString(buf, string(g.Reason))
	enc := g.Board.Encode()
	return append(buf, enc[:]...), nil
}

func appendString(buf []byte, s string) []byte {
	buf = binary.BigEndian.AppendUint16(buf, uint16(len(s)))
	return append(buf, s...)
}

func decodeGameRecord(data []byte) (*game.Game, error) {
	if len(data) < 11 {
		return nil, errors.Errorf("game record too short: %d bytes", len(data))
	}
	if data[0] != recordVersion {
		return nil, errors.Errorf("unsupported game record version %d", data[0])
	}

	g := &game.Game{
		ID: binary.BigEndian.Uint64(data[1:9]),
	}
	if turn := data[9]; turn <= uint8(board.Black) {
		g.Turn = board.Color(turn)
	} else {
		return nil, errors.Errorf("invalid turn byte %d", data[9])
	}
	if status := data[10]; status <= uint8(game.StatusEnded) {
		g.Status = game.Status(status)
	} else {
		return nil, errors.Errorf("invalid status byte %d", data[10])
	}

	rest := data[11:]
	var err error
	if g.White, rest, err = readString(rest); err != nil {
		return nil, errors.Wrap(err, "white")
	}
	if g.Black, rest, err = readString(rest); err != nil {
		return nil, errors.Wrap(err, "black")
	}
	if g.Winner, rest, err = readString(rest); err != nil {
		return nil, errors.Wrap(err, "winner")
	}
	var reason string
	if reason, rest, err = readString(rest); err != nil {
		return nil, errors.Wrap(err, "end reason")
	}
	g.Reason = game.EndReason(reason)

	if len(rest) != 64 {
		return nil, errors.Errorf("board payload is %d bytes, want 64", len(rest))
	}
	var raw [64]byte
	copy(raw[:], rest)
	b, err := board.DecodeBoard(raw)
	if err != nil {
		return nil, errors.Wrap(err, "decode board")
	}
	g.Board = b

	return g, nil
}

func readString(data []byte) (string, []byte, error) {
	if len(data) < 2 {
		return "", nil, errors.New("truncated length prefix")
	}
	n := int(binary.BigEndian.Uint16(data))
	data = data[2:]
	if len(data) < n {
		return "", nil, errors.Errorf("truncated string: want %d bytes, have %d", n, len(data))
	}
	return string(data[:n]), data[n:], nil
}
