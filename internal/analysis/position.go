package analysis

import "fmt"

var compass3x3 = [9]string{
	"top-left", "top", "top-right",
	"left", "center", "right",
	"bottom-left", "bottom", "bottom-right",
}

// PositionName returns a display name for a cell. 3x3 grids use compass
// names; other shapes use "zone N (row r, col c)" with 1-based numbers.
func PositionName(index, rows, cols int) string {
	if rows == 3 && cols == 3 && index >= 0 && index < len(compass3x3) {
		return compass3x3[index]
	}
	if cols < 1 {
		return fmt.Sprintf("zone %d", index+1)
	}
	return fmt.Sprintf("zone %d (row %d, col %d)", index+1, index/cols+1, index%cols+1)
}
