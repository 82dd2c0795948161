package arena

// ComputeACPL derives average centipawn loss per side from a
// white-perspective evaluation trace: evals[i] is the evaluation before ply
// i, the last entry the evaluation after the final move. Ply 0 belongs to
// White. A move's loss is the eval drop it caused, sign-flipped for Black
// plies and clamped at zero so opponent mistakes never count as negative
// loss.
func ComputeACPL(evals []int) (whiteACPL, blackACPL float64) {
	if len(evals) < 2 {
		return 0, 0
	}

	var whiteSum, blackSum float64
	var whiteMoves, blackMoves int
	for i := 0; i+1 < len(evals); i++ {
		diff := evals[i] - evals[i+1]
		if i%2 == 1 {
			diff = -diff
		}
		if diff < 0 {
			diff = 0
		}
		if i%2 == 0 {
			whiteSum += float64(diff)
			whiteMoves++
		} else {
			blackSum += float64(diff)
			blackMoves++
		}
	}

	if whiteMoves > 0 {
		whiteACPL = whiteSum / float64(whiteMoves)
	}
	if blackMoves > 0 {
		blackACPL = blackSum / float64(blackMoves)
	}
	return whiteACPL, blackACPL
}
