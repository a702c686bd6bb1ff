package world

// Distance is the number of king moves between two cells.
func Distance(ax, ay, bx, by int) int {
	dx, dy := abs(ax-bx), abs(ay-by)
	if dx > dy {
		return dx
	}
	return dy
}

// StepToward moves one cell from (x, y) toward (tx, ty), diagonals allowed.
func StepToward(x, y, tx, ty int) (int, int) {
	return x + sign(tx-x), y + sign(ty-y)
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}

func sign(v int) int {
	switch {
	case v > 0:
		return 1
	case v < 0:
		return -1
	}
	return 0
}
