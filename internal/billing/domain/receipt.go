package billing

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"
)

// NewReceiptNumber generates a receipt identifier: payment date as DDMMYY
// followed by four random decimal digits. Generated fresh per payment and
// never regenerated once persisted.
func NewReceiptNumber(now time.Time) string {
	buf := make([]byte, 8)
	_, _ = rand.Read(buf)
	suffix := binary.BigEndian.Uint64(buf) % 10000
	return fmt.Sprintf("%s%04d", now.UTC().Format("020106"), suffix)
}
