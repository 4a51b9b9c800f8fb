package utils

const base62Chars = "0123456789abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"

// GenerateShortCode derives a short code from a fresh snowflake ID.
// Codes are unique as long as the snowflake node is, so collisions are
// a retry case, not an expected path.
func GenerateShortCode() (string, error) {
	id, err := GenerateID()
	if err != nil {
		return "", err
	}
	return EncodeBase62(id), nil
}

// EncodeBase62 renders a non-negative number in base62
func EncodeBase62(num int64) string {
	if num == 0 {
		return string(base62Chars[0])
	}

	const base = int64(len(base62Chars))
	buf := make([]byte, 0, 11) // 63-bit snowflake fits in 11 base62 digits
	for num > 0 {
		buf = append(buf, base62Chars[num%base])
		num /= base
	}
	for i, j := 0, len(buf)-1; i < j; i, j = i+1, j-1 {
		buf[i], buf[j] = buf[j], buf[i]
	}
	return string(buf)
}
