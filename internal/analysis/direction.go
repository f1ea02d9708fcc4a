package analysis

import "github.com/pkg/errors"

const (
	allSafeLabel = "all zones safe"
	allSafeArrow = "✓"
	centerLabel  = "center zone is safest"
	centerArrow  = "○"
)

// Direction is the recommended movement toward the least crowded cell.
// Cell is nil when every cell is empty and no movement is needed.
type Direction struct {
	Cell     *int   `json:"cell_index"`
	Label    string `json:"label"`
	Arrow    string `json:"arrow"`
	MinCount int    `json:"min_count"`
}

// Advise picks the cell with the lowest occupancy and describes where it lies
// relative to the grid.
//
// Ties go to the lowest index (row-major first match). On grids with an odd
// number of rows and columns, the exact center cell is reported with the
// label "center zone is safest" and the arrow "○".
func Advise(occupancy []int, rows, cols int) (Direction, error) {
	if rows < 1 || cols < 1 {
		return Direction{}, errors.Wrapf(ErrInvalidDimension, "grid %dx%d", rows, cols)
	}
	if len(occupancy) > 0 && len(occupancy) != rows*cols {
		return Direction{}, errors.Wrapf(ErrInvalidInput, "occupancy has %d cells, grid %dx%d has %d", len(occupancy), rows, cols, rows*cols)
	}

	best, empty := 0, true
	for i, n := range occupancy {
		if n < 0 {
			return Direction{}, errors.Wrapf(ErrInvalidInput, "cell %d count %d < 0", i, n)
		}
		if n != 0 {
			empty = false
		}
		if n < occupancy[best] {
			best = i
		}
	}
	if empty {
		return Direction{Label: allSafeLabel, Arrow: allSafeArrow}, nil
	}

	row, col := best/cols, best%cols
	label, arrow := describe(row, col, rows, cols)
	idx := best
	return Direction{
		Cell:     &idx,
		Label:    label,
		Arrow:    arrow,
		MinCount: occupancy[best],
	}, nil
}

// describe names the position of (row, col) on a rows x cols grid.
func describe(row, col, rows, cols int) (string, string) {
	if rows%2 == 1 && cols%2 == 1 && row == rows/2 && col == cols/2 {
		return centerLabel, centerArrow
	}

	var vertical, arrow string
	switch {
	case row == 0:
		vertical, arrow = "top", "↑"
	case row == rows-1:
		vertical, arrow = "bottom", "↓"
	case float64(row) < float64(rows)/2:
		vertical, arrow = "upper-middle", "↗"
	default:
		vertical, arrow = "lower-middle", "↘"
	}

	var horizontal string
	switch {
	case col == 0:
		horizontal = "left"
		if row == 0 {
			arrow = "↖"
		} else {
			arrow = "↙"
		}
	case col == cols-1:
		horizontal = "right"
		if row == 0 {
			arrow = "↗"
		} else {
			arrow = "↘"
		}
	case float64(col) < float64(cols)/2:
		horizontal = "left-middle"
	default:
		horizontal = "right-middle"
	}

	return vertical + " " + horizontal, arrow
}
