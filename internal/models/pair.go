package models

// NormalizePair orders two distinct user ids so the smaller one comes first.
// The ordering is part of the on-disk format of the conversations table:
// (user1Id, user2Id) is always (lower, higher).
func NormalizePair(a, b uint) (lower, higher uint, err error) {
	if a == 0 || b == 0 {
		return 0, 0, NewValidationError("Both participants are required")
	}
	if a == b {
		return 0, 0, NewValidationError("A user cannot start a conversation with themselves")
	}
	if a < b {
		return a, b, nil
	}
	return b, a, nil
}
