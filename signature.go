package conveyor

import (
	"fmt"
	"strings"

	"github.com/TheBitDrifter/mask"
)

// NewSignature builds a signature with one bit marked per component type.
func NewSignature(ids ...ComponentTypeID) mask.Mask {
	var m mask.Mask
	for _, id := range ids {
		m.Mark(uint32(id))
	}
	return m
}

// matches reports whether an entity signature satisfies a system's
// required signature: required must be a sub-bitset of the entity's.
// Extra components on the entity are irrelevant.
func matches(entitySig, required mask.Mask) bool {
	return entitySig.ContainsAll(required)
}

func hasBit(m mask.Mask, bit ComponentTypeID) bool {
	var probe mask.Mask
	probe.Mark(uint32(bit))
	return m.ContainsAll(probe)
}

// formatSignature renders a signature as a binary string of the given
// width, most significant bit first (bit 0 is the rightmost character).
func formatSignature(m mask.Mask, width int) string {
	var b strings.Builder
	b.Grow(width)
	for i := width - 1; i >= 0; i-- {
		if hasBit(m, ComponentTypeID(i)) {
			b.WriteByte('1')
		} else {
			b.WriteByte('0')
		}
	}
	return b.String()
}

// parseSignature is the inverse of formatSignature. Any width is accepted;
// the rightmost character is bit 0.
func parseSignature(s string) (mask.Mask, error) {
	var m mask.Mask
	n := len(s)
	if n > maxSignatureBits {
		return mask.Mask{}, fmt.Errorf("signature wider than %d bits", maxSignatureBits)
	}
	for i := 0; i < n; i++ {
		switch s[i] {
		case '1':
			m.Mark(uint32(n - 1 - i))
		case '0':
		default:
			return mask.Mask{}, fmt.Errorf("invalid signature character %q", s[i])
		}
	}
	return m, nil
}
