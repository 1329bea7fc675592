// epd.go implements parsing of chess positions in Extended Position
// Description notation: a FEN-like position followed by semicolon-separated
// operations such as "bm" (best move) and "id".

package engine

import (
	"fmt"
	"strings"
)

// EPD is an Extended Position Description record.
type EPD struct {
	Position *Position
	Id       string
	BestMove []Move
	Comment  map[string]string
}

// ParseEPD parses a single EPD line.
//
// line has the form "<placement> <side> <castle> <enpassant> op args; op args; ...".
func ParseEPD(line string) (*EPD, error) {
	fields := strings.Fields(line)
	if len(fields) < 4 {
		return nil, fmt.Errorf("epd line has too few fields: %q", line)
	}

	pos := NewPosition()
	if err := ParsePiecePlacement(fields[0], pos); err != nil {
		return nil, err
	}
	if err := ParseSideToMove(fields[1], pos); err != nil {
		return nil, err
	}
	if err := ParseCastlingAbility(fields[2], pos); err != nil {
		return nil, err
	}
	if err := ParseEnpassantSquare(fields[3], pos); err != nil {
		return nil, err
	}

	epd := &EPD{
		Position: pos,
		Comment:  make(map[string]string),
	}

	rest := strings.Join(fields[4:], " ")
	for _, op := range splitOperations(rest) {
		op = strings.TrimSpace(op)
		if op == "" {
			continue
		}
		opFields := strings.SplitN(op, " ", 2)
		if len(opFields) != 2 {
			continue
		}
		code, args := opFields[0], strings.TrimSpace(opFields[1])
		switch code {
		case "bm":
			for _, san := range strings.Fields(args) {
				m, err := pos.SANToMove(san)
				if err != nil {
					return nil, fmt.Errorf("invalid bm %q: %v", san, err)
				}
				epd.BestMove = append(epd.BestMove, m)
			}
		case "id":
			epd.Id = strings.Trim(args, "\"")
		default:
			epd.Comment[code] = strings.Trim(args, "\"")
		}
	}

	return epd, nil
}

// splitOperations splits an EPD operation list on ';', ignoring semicolons
// inside double quotes.
func splitOperations(s string) []string {
	var ops []string
	inQuotes := false
	start := 0
	for i, r := range s {
		switch r {
		case '"':
			inQuotes = !inQuotes
		case ';':
			if !inQuotes {
				ops = append(ops, s[start:i])
				start = i + 1
			}
		}
	}
	if start < len(s) {
		ops = append(ops, s[start:])
	}
	return ops
}

// String formats the EPD back into its textual representation.
func (e *EPD) String() string {
	s := FormatPiecePlacement(e.Position)
	s += " " + FormatSideToMove(e.Position)
	s += " " + FormatCastlingAbility(e.Position)
	s += " " + FormatEnpassantSquare(e.Position)

	for _, bm := range e.BestMove {
		s += " bm " + bm.LAN() + ";"
	}
	if e.Id != "" {
		s += " id \"" + e.Id + "\";"
	}
	for k, v := range e.Comment {
		s += " " + k + " \"" + v + "\";"
	}
	return s
}
