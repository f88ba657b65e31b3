package service

import (
	"encoding/binary"
	"fmt"

	"github.com/google/uuid"

	"github.com/ecodeli/ecodeli/internal/validation"
)

// newTrackingCode выдаёт код вида EDL + 10 цифр + контрольная цифра Луна.
func newTrackingCode() string {
	u := uuid.New()
	base := fmt.Sprintf("%010d", binary.BigEndian.Uint64(u[:8])%10_000_000_000)
	check, ok := validation.LuhnCheckDigit(base)
	if !ok {
		panic("tracking code base is not numeric: " + base)
	}
	return validation.TrackingPrefix + base + string(check)
}

func newExternalRef() string {
	return "PAY-" + uuid.NewString()
}
