package discussion

import (
	"strconv"

	"github.com/cespare/xxhash/v2"
)

const (
	base62Alphabet = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz"
	urlHashLength  = 11 // enough digits for any uint64 in base 62
)

// URLHash derives the permalink hash of a comment id. The result depends
// only on salt and id.
func URLHash(salt string, id int64) string {
	n := xxhash.Sum64String(salt + ":" + strconv.FormatInt(id, 10))

	buf := make([]byte, urlHashLength)
	for i := urlHashLength - 1; i >= 0; i-- {
		buf[i] = base62Alphabet[n%62]
		n /= 62
	}
	return string(buf)
}
