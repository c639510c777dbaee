package nitro

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// imageIDBitmask marks which PCR indices feed the image identity digest:
// bits 0, 1 and 2 (code, kernel, application) plus bit 16 (user config).
const imageIDBitmask uint32 = 1<<0 | 1<<1 | 1<<2 | 1<<16 // 0x10007

// ComputeImageID derives the image identity digest from the four PCR
// measurements that define an enclave build. The digest is
// SHA-256(BE32(bitmask) ‖ PCR0 ‖ PCR1 ‖ PCR2 ‖ PCR16), hex-encoded.
//
// The function is deterministic: identical measurements always yield the
// identical digest, and any measured byte difference yields a different one.
func ComputeImageID(pcr0, pcr1, pcr2, pcr16 []byte) string {
	hasher := sha256.New()

	var bitmask [4]byte
	binary.BigEndian.PutUint32(bitmask[:], imageIDBitmask)
	hasher.Write(bitmask[:])

	hasher.Write(pcr0)
	hasher.Write(pcr1)
	hasher.Write(pcr2)
	hasher.Write(pcr16)

	return hex.EncodeToString(hasher.Sum(nil))
}

// ImageID computes the image identity digest from the document's PCR map.
// PCR0, PCR1 and PCR2 are required; PCR16 is optional and defaults to 48
// zero bytes when the enclave was started without user configuration.
func (d *Document) ImageID() (string, error) {
	pcr0, err := d.pcr(0)
	if err != nil {
		return "", err
	}
	pcr1, err := d.pcr(1)
	if err != nil {
		return "", err
	}
	pcr2, err := d.pcr(2)
	if err != nil {
		return "", err
	}
	pcr16 := d.pcrOptional(16)

	return ComputeImageID(pcr0, pcr1, pcr2, pcr16), nil
}
