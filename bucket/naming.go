package bucket

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
)

// idDigits is the width of the zero-padded id in a bucket file name.
const idDigits = 10

// FormatID renders a bucket id the way it appears in file names.
func FormatID(id uint32) string {
	return fmt.Sprintf("%0*d", idDigits, id)
}

// FileName returns the backing file path for bucket id: dir/object_##########.
func FileName(dir, objectName string, id uint32) string {
	return filepath.Join(dir, objectName+"_"+FormatID(id))
}

// ParseFileName extracts the id from the base name of a bucket file belonging
// to objectName. ok is false for any other name.
func ParseFileName(objectName, base string) (id uint32, ok bool) {
	prefix := objectName + "_"
	if !strings.HasPrefix(base, prefix) {
		return 0, false
	}
	digits := base[len(prefix):]
	if len(digits) != idDigits {
		return 0, false
	}
	for i := 0; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return 0, false
		}
	}
	v, err := strconv.ParseUint(digits, 10, 32)
	if err != nil || v == 0 {
		return 0, false
	}
	return uint32(v), true
}
