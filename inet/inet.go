// Package inet builds radix keys and masks for IP addresses.
//
// A key is the address bytes preceded by a length byte covering the
// whole key, so IPv4 keys take 5 bytes and IPv6 keys 17. Tables made
// with the default offset of 8 skip the length byte.
package inet

import (
	"net/netip"

	"github.com/hideo55/go-popcount"
)

// Key returns the key of addr. IPv4-mapped IPv6 addresses are unmapped.
func Key(addr netip.Addr) []byte {
	raw := addr.Unmap().AsSlice()
	key := make([]byte, 1+len(raw))
	key[0] = byte(len(key))
	copy(key[1:], raw)
	return key
}

// Mask returns the mask with the leading bits set out of size address
// bits.
func Mask(bits, size int) []byte {
	bits = max(0, min(bits, size))
	mask := make([]byte, 1+size/8)
	mask[0] = byte(len(mask))
	for i := 1; bits > 0; i++ {
		n := min(bits, 8)
		mask[i] = byte(0xff << (8 - n))
		bits -= n
	}
	return mask
}

// Prefix returns the key and mask of p. The key is the masked address;
// a single address prefix gives a nil mask, a host route.
func Prefix(p netip.Prefix) (key, mask []byte) {
	p = p.Masked()
	addr := p.Addr()
	bits := p.Bits()
	if addr.Is4In6() {
		addr = addr.Unmap()
		bits = max(0, bits-96)
	}
	key = Key(addr)
	if bits == addr.BitLen() {
		return key, nil
	}
	return key, Mask(bits, addr.BitLen())
}

// PrefixLen counts the bits set in mask past its length byte. A nil
// mask yields -1.
func PrefixLen(mask []byte) int {
	if mask == nil {
		return -1
	}
	n := 0
	for _, b := range mask[min(1, len(mask)):] {
		n += int(popcount.Count(uint64(b)))
	}
	return n
}

// Addr returns the address held in key.
func Addr(key []byte) (netip.Addr, bool) {
	if len(key) == 0 || int(key[0]) > len(key) {
		return netip.Addr{}, false
	}
	raw := make([]byte, 16)
	n := copy(raw, key[1:key[0]])
	switch {
	case key[0] == 5 && n == 4:
		return netip.AddrFrom4([4]byte(raw[:4])), true
	case key[0] == 17 && n == 16:
		return netip.AddrFrom16([16]byte(raw)), true
	}
	return netip.Addr{}, false
}

// ToPrefix turns a key and mask back into a prefix, a nil mask giving a
// single address prefix.
func ToPrefix(key, mask []byte) (netip.Prefix, bool) {
	addr, ok := Addr(key)
	if !ok {
		return netip.Prefix{}, false
	}
	bits := addr.BitLen()
	if mask != nil {
		bits = PrefixLen(mask)
	}
	p, err := addr.Prefix(bits)
	return p, err == nil
}
