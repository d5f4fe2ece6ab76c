// Package game tracks the companion's tic-tac-toe board: the
// server-confirmed snapshot derived from tool results, plus a short-lived
// optimistic overlay for the user's pending move.
package game

import "strings"

// Board is the 3x3 grid. Empty cells are "", played cells hold "X" or "O".
type Board [3][3]string

// ParseBoard converts the agent's formatted board string into a grid. The
// format is one row per line, "0 | X |   |   |", followed by a column
// header line that is ignored. Anything unparseable degrades to empty
// cells rather than failing.
func ParseBoard(boardString string) Board {
	var board Board
	if boardString == "" {
		return board
	}
	var rows []string
	for _, line := range strings.Split(boardString, "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		rows = append(rows, line)
	}
	if len(rows) > 3 {
		rows = rows[:3]
	}
	for i, row := range rows {
		cells := strings.Split(row, "|")
		// cells[0] is the row label; take the next three.
		for j := 0; j < 3 && j+1 < len(cells); j++ {
			board[i][j] = strings.TrimSpace(cells[j+1])
		}
	}
	return board
}

// CurrentPlayer derives whose turn it is. X always moves first, so equal
// counts mean it is X's turn.
func CurrentPlayer(b Board) string {
	x, o := 0, 0
	for _, row := range b {
		for _, cell := range row {
			switch cell {
			case "X":
				x++
			case "O":
				o++
			}
		}
	}
	if x <= o {
		return "X"
	}
	return "O"
}
