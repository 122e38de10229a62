package engine

import (
	"errors"
	"regexp"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/m3rciful/contentbot/internal/ledger"
)

const (
	shebaPrefix = "IR"
	shebaLength = 26

	// MessageLimit is the longest text Telegram accepts in one message.
	MessageLimit = 4096
)

// maxBalance is the first value the NUMERIC(14, 2) balance column cannot hold.
const maxBalance = 1e12

// amountPattern accepts plain non-negative decimals with at most two fraction digits.
var amountPattern = regexp.MustCompile(`^[0-9]+(\.[0-9]{1,2})?$`)

var (
	errEmpty    = errors.New("empty input")
	errBadSheba = errors.New("invalid sheba number")
)

// validateField trims v and applies the rule for field.
func validateField(field ledger.Field, v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", errEmpty
	}
	if field == ledger.FieldSheba && !ValidSheba(v) {
		return "", errBadSheba
	}
	return v, nil
}

// ValidSheba reports whether v is an "IR"-prefixed account id of 26 characters.
func ValidSheba(v string) bool {
	return strings.HasPrefix(v, shebaPrefix) && utf8.RuneCountInString(v) == shebaLength
}

// parseBalance parses "<userId> <amount>".
func parseBalance(in string) (int64, float64, bool) {
	parts := strings.Fields(in)
	if len(parts) != 2 {
		return 0, 0, false
	}
	id, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return 0, 0, false
	}
	if !amountPattern.MatchString(parts[1]) {
		return 0, 0, false
	}
	amount, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || amount >= maxBalance {
		return 0, 0, false
	}
	return id, amount, true
}

func parseUserID(in string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(in), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

func parseCount(in string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(in))
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// splitMessage joins lines into chunks no longer than limit bytes. A single
// line above the limit is cut on rune boundaries.
func splitMessage(lines []string, limit int) []string {
	var (
		chunks []string
		cur    strings.Builder
	)
	flush := func() {
		if cur.Len() > 0 {
			chunks = append(chunks, cur.String())
			cur.Reset()
		}
	}
	for _, line := range lines {
		for len(line) > limit {
			flush()
			cut := limit
			for cut > 0 && !utf8.RuneStart(line[cut]) {
				cut--
			}
			if cut == 0 {
				cut = limit
			}
			chunks = append(chunks, line[:cut])
			line = line[cut:]
		}
		sep := 0
		if cur.Len() > 0 {
			sep = 1
		}
		if cur.Len()+sep+len(line) > limit {
			flush()
			sep = 0
		}
		if sep == 1 {
			cur.WriteByte('\n')
		}
		cur.WriteString(line)
	}
	flush()
	return chunks
}
