package moodle

import (
	crand "crypto/rand"
	"encoding/binary"
	"encoding/json"
	"math/rand"
	"reflect"
	"strconv"
	"strings"
	"time"
)

// Flag is a boolean moodle may encode as true/false, 0/1 or "0"/"1".
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	s := strings.Trim(strings.TrimSpace(string(data)), "\"")
	switch s {
	case "", "null", "0", "false":
		*f = false
		return nil
	case "1", "true":
		*f = true
		return nil
	}
	n, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return &json.UnmarshalTypeError{Value: string(data), Type: reflect.TypeOf(true)}
	}
	*f = n != 0
	return nil
}

// Warning is an entry of the "warnings" list many functions return.
type Warning struct {
	Item        string `json:"item"`
	ItemID      int64  `json:"itemid"`
	WarningCode string `json:"warningcode"`
	Message     string `json:"message"`
}

type CustomField struct {
	Name  string `json:"shortname"`
	Value string `json:"value"`
	Type  string `json:"type"`
}

func unixTime(seconds int64) *time.Time {
	if seconds == 0 {
		return nil
	}
	t := time.Unix(seconds, 0)
	return &t
}

const passwordChars = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789"

func NewCryptoSeededSource() rand.Source {
	var seed int64
	binary.Read(crand.Reader, binary.BigEndian, &seed)
	return rand.NewSource(seed)
}

// RandomPassword returns a ten character password split as xxxxx-xxxxx.
func RandomPassword() string {
	return generatePassword(rand.New(NewCryptoSeededSource()), 10)
}

// generatePassword draws size characters with no character equal to or one
// above its predecessor, redrawing until upper case, lower case and digit
// are all present. The halves are joined with a dash.
func generatePassword(r *rand.Rand, size int) string {
	b := make([]byte, 0, size)
	for {
		b = b[:0]
		for len(b) < size {
			c := passwordChars[r.Intn(len(passwordChars))]
			if n := len(b); n > 0 && (c == b[n-1] || c == b[n-1]+1) {
				continue
			}
			b = append(b, c)
		}
		if hasPasswordClasses(b) {
			half := size / 2
			return string(b[:half]) + "-" + string(b[half:])
		}
	}
}

func hasPasswordClasses(b []byte) bool {
	var upper, lower, digit bool
	for _, c := range b {
		switch {
		case c >= 'A' && c <= 'Z':
			upper = true
		case c >= 'a' && c <= 'z':
			lower = true
		case c >= '0' && c <= '9':
			digit = true
		}
	}
	return upper && lower && digit
}
