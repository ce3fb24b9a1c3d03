package entity

import (
	"fmt"

	"github.com/rocketscienceinc/connectquatro-backend/internal/apperror"
)

const EmptyCell = ""

// Board is the game grid. Cells hold the owning player's ID or EmptyCell.
// Rows are ordered top to bottom, so chips fall toward the last row.
type Board struct {
	Cells     [][]string `json:"cells"`
	MaxToWin  int        `json:"max_to_win"`
	NextToAct string     `json:"next_to_act"`
}

func NewBoard(width, height, maxToWin int, firstToAct string) *Board {
	cells := make([][]string, height)
	for rowIx := range cells {
		cells[rowIx] = make([]string, width)
	}

	return &Board{
		Cells:     cells,
		MaxToWin:  maxToWin,
		NextToAct: firstToAct,
	}
}

func (that *Board) Width() int {
	if len(that.Cells) == 0 {
		return 0
	}
	return len(that.Cells[0])
}

func (that *Board) Height() int {
	return len(that.Cells)
}

// DropChip places the player's chip in the lowest empty cell of the column.
// The grid is the only thing it mutates.
func (that *Board) DropChip(playerID string, column int) error {
	if column < 0 || column >= that.Width() {
		return fmt.Errorf("%w: column %d", apperror.ErrColumnOutOfRange, column)
	}

	if that.Cells[0][column] != EmptyCell {
		return fmt.Errorf("%w: column %d", apperror.ErrColumnFull, column)
	}

	targetRow := that.Height() - 1
	for rowIx, row := range that.Cells {
		if row[column] != EmptyCell {
			targetRow = rowIx - 1
			break
		}
	}

	that.Cells[targetRow][column] = playerID

	return nil
}

// Winner returns the first candidate with MaxToWin chips in a row, column or
// diagonal, or nil. Candidates are scanned in the given order, so a move that
// completes lines for several players resolves to the earliest candidate.
func (that *Board) Winner(candidates []*Player) *Player {
	for _, candidate := range candidates {
		if that.hasWinningRun(candidate.ID) {
			return candidate
		}
	}
	return nil
}

func (that *Board) hasWinningRun(playerID string) bool {
	width, height := that.Width(), that.Height()

	// horizontal runs
	for _, row := range that.Cells {
		inARow := 0
		for _, cell := range row {
			if cell == playerID {
				inARow++
			} else {
				inARow = 0
			}
			if inARow == that.MaxToWin {
				return true
			}
		}
	}

	// vertical runs
	for colIx := 0; colIx < width; colIx++ {
		inARow := 0
		for rowIx := 0; rowIx < height; rowIx++ {
			if that.Cells[rowIx][colIx] == playerID {
				inARow++
			} else {
				inARow = 0
			}
			if inARow == that.MaxToWin {
				return true
			}
		}
	}

	// diagonal runs, anchored only at cells with enough board left in the
	// scan direction
	for rowIx := 0; rowIx <= height-that.MaxToWin; rowIx++ {
		for colIx := 0; colIx < width; colIx++ {
			if that.Cells[rowIx][colIx] != playerID {
				continue
			}

			if colIx <= width-that.MaxToWin && that.runsDiagonally(playerID, rowIx, colIx, 1) {
				return true
			}

			if colIx >= that.MaxToWin-1 && that.runsDiagonally(playerID, rowIx, colIx, -1) {
				return true
			}
		}
	}

	return false
}

func (that *Board) runsDiagonally(playerID string, rowIx, colIx, colStep int) bool {
	inARow := 1
	for offset := 1; offset < that.MaxToWin; offset++ {
		if that.Cells[rowIx+offset][colIx+offset*colStep] == playerID {
			inARow++
		}
	}
	return inARow >= that.MaxToWin
}

// CycleTurn advances NextToAct to the id after the current one in orderedIDs,
// wrapping to the first. If the current actor is no longer in the order (the
// player left), the turn falls to the first id.
func (that *Board) CycleTurn(orderedIDs []string) string {
	if len(orderedIDs) == 0 {
		return that.NextToAct
	}

	next := orderedIDs[0]
	for ix, id := range orderedIDs {
		if id == that.NextToAct && ix != len(orderedIDs)-1 {
			next = orderedIDs[ix+1]
			break
		}
	}

	that.NextToAct = next

	return next
}
