package callbacks

import (
	"strconv"
	"strings"
)

// PayloadInt64 parses a callback payload as int64.
func PayloadInt64(payload string) (int64, error) {
	return strconv.ParseInt(strings.TrimSpace(payload), 10, 64)
}
