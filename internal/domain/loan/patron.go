package loan

// PatronIDLength 读者证号固定6位数字
const PatronIDLength = 6

// IsValidPatronID 恰好6个ASCII数字
func IsValidPatronID(patronID string) bool {
	if len(patronID) != PatronIDLength {
		return false
	}
	for i := 0; i < len(patronID); i++ {
		if patronID[i] < '0' || patronID[i] > '9' {
			return false
		}
	}
	return true
}

// ValidatePatronID 校验读者证号
func ValidatePatronID(patronID string) error {
	if !IsValidPatronID(patronID) {
		return ErrInvalidPatron
	}
	return nil
}
